// Package layout loads AIS message field layouts in the gpsd aivdm.json shape.
package layout

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

//go:embed aivdm.json
var defaultTable []byte

// Entry is one field of a message layout. Start and End are inclusive bit offsets.
type Entry struct {
	Member string `json:"member"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Type   string `json:"type"`
}

// Message is the layout of one message type.
type Message struct {
	Description string  `json:"description"`
	Fields      []Entry `json:"fields"`
}

// Table maps a decimal type id to its message layout.
type Table struct {
	Messages map[string]Message `json:"messages"`
}

// Parse decodes a layout table from JSON.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("parse layout: no messages")
	}
	return &t, nil
}

// Load reads a layout table from a file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded layout table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(err)
	}
	return t
}

// TypeIDs returns the numeric type ids in the table, ascending.
// Keys that are not decimal integers are skipped.
func (t *Table) TypeIDs() []int {
	ids := make([]int, 0, len(t.Messages))
	for key := range t.Messages {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
