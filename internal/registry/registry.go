// Package registry maps AIS message type ids to their field decoders.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"ais_parser/internal/bits"
	"ais_parser/internal/fields"
	"ais_parser/internal/layout"
)

var (
	// ErrUnknownType is returned for a message type id with no layout.
	ErrUnknownType = errors.New("registry: unknown message type")
	// ErrUnknownField is returned for a field name missing from a type's layout.
	ErrUnknownField = errors.New("registry: unknown field")
	// ErrInvalidLayout is returned when a layout table cannot be built.
	ErrInvalidLayout = errors.New("registry: invalid layout")
)

// MaxTypeID is the largest id a 6-bit type field can carry.
const MaxTypeID = 63

// Decoder holds the fields of one message type.
type Decoder struct {
	TypeID      int
	Description string

	byName map[string]fields.Field
	// order keeps the table's field order for listings.
	order []string
}

// Field returns the named field.
func (d *Decoder) Field(name string) (fields.Field, error) {
	f, ok := d.byName[name]
	if !ok {
		return fields.Field{}, fmt.Errorf("%w: %q in type %d", ErrUnknownField, name, d.TypeID)
	}
	return f, nil
}

// Fields returns the fields in layout order.
func (d *Decoder) Fields() []fields.Field {
	out := make([]fields.Field, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byName[name])
	}
	return out
}

// Decode decodes the named field from payload.
func (d *Decoder) Decode(name string, payload bits.BitString) (any, error) {
	f, err := d.Field(name)
	if err != nil {
		return nil, err
	}
	return f.Decode(payload)
}

// Registry holds the decoders for every known message type.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	byType map[int]*Decoder
}

// New builds a registry from a layout table. Any unusable entry fails the build.
func New(table *layout.Table) (*Registry, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidLayout)
	}
	r := &Registry{byType: make(map[int]*Decoder, len(table.Messages))}

	for key, msg := range table.Messages {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id > MaxTypeID {
			return nil, fmt.Errorf("%w: type id %q", ErrInvalidLayout, key)
		}
		d := &Decoder{
			TypeID:      id,
			Description: msg.Description,
			byName:      make(map[string]fields.Field, len(msg.Fields)),
		}
		for _, e := range msg.Fields {
			if _, dup := d.byName[e.Member]; dup {
				return nil, fmt.Errorf("%w: type %d repeats field %q", ErrInvalidLayout, id, e.Member)
			}
			f, err := fields.NewField(e.Member, e.Start, e.End, kindTag(e.Member, e.Type))
			if err != nil {
				return nil, fmt.Errorf("type %d: %w", id, err)
			}
			d.byName[e.Member] = f
			d.order = append(d.order, e.Member)
		}
		r.byType[id] = d
	}
	return r, nil
}

// gpsd tables tag the MMSI as "u" and positions as "I4". Those members get
// their dedicated kinds so both table styles decode the same way.
var memberKinds = map[string]struct{ from, to string }{
	"mmsi": {"u", "mmsi"},
	"lat":  {"I4", "lat"},
	"lon":  {"I4", "lon"},
}

func kindTag(member, tag string) string {
	if k, ok := memberKinds[member]; ok && k.from == tag {
		return k.to
	}
	return tag
}

// NewDefault builds a registry from the embedded layout table.
func NewDefault() (*Registry, error) {
	return New(layout.Default())
}

// Decoder returns the decoder for a type id.
func (r *Registry) Decoder(typeID int) (*Decoder, error) {
	d, ok := r.byType[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typeID)
	}
	return d, nil
}

// Decode decodes one field of a message of the given type.
func (r *Registry) Decode(typeID int, name string, payload bits.BitString) (any, error) {
	d, err := r.Decoder(typeID)
	if err != nil {
		return nil, err
	}
	return d.Decode(name, payload)
}

// DecodeAll decodes every field of the type that fits in payload.
// Fields beyond the end of a short payload are omitted.
func (r *Registry) DecodeAll(typeID int, payload bits.BitString) (map[string]any, error) {
	d, err := r.Decoder(typeID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(d.order))
	for _, name := range d.order {
		v, err := d.byName[name].Decode(payload)
		if errors.Is(err, bits.ErrRange) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Types returns the registered type ids, ascending.
func (r *Registry) Types() []int {
	ids := make([]int, 0, len(r.byType))
	for id := range r.byType {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FieldCount returns the total number of fields across all types.
func (r *Registry) FieldCount() int {
	n := 0
	for _, d := range r.byType {
		n += len(d.order)
	}
	return n
}
