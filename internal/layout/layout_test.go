package layout

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	table := Default()
	want := []int{1, 2, 3, 4, 5, 18}
	if got := table.TypeIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("TypeIDs() = %v, want %v", got, want)
	}

	msg := table.Messages["5"]
	if msg.Description == "" {
		t.Error("type 5 has no description")
	}
	var found bool
	for _, e := range msg.Fields {
		if e.Member == "shipname" {
			found = true
			if e.Start != 112 || e.End != 231 || e.Type != "t" {
				t.Errorf("shipname = %+v", e)
			}
		}
	}
	if !found {
		t.Error("shipname missing from type 5")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	data := `{"messages": {"27": {"description": "Long range", "fields": [
		{"member": "type", "start": 0, "end": 5, "type": "u"},
		{"member": "mmsi", "start": 8, "end": 37, "type": "mmsi"}
	]}, "meta": {"fields": []}}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := table.TypeIDs(); !reflect.DeepEqual(got, []int{27}) {
		t.Errorf("TypeIDs() = %v, want [27]", got)
	}
	if len(table.Messages["27"].Fields) != 2 {
		t.Errorf("fields = %d, want 2", len(table.Messages["27"].Fields))
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "{", `{"messages": {}}`, `[]`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load of missing file expected error")
	}
}
