package registry

import (
	"ais_parser/internal/bits"
)

// FieldTrace describes how one field was read from a payload.
type FieldTrace struct {
	Name  string `json:"name"`
	Start int    `json:"start"` // First bit, inclusive.
	End   int    `json:"end"`   // Last bit, exclusive.
	Kind  string `json:"kind"`
	Bits  string `json:"bits,omitempty"` // Raw bits of the window, empty when out of range.
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Trace decodes every field of the type and reports the raw bits alongside
// each value. Fields that fail are reported with their error instead of
// aborting the trace.
func (r *Registry) Trace(typeID int, payload bits.BitString) ([]FieldTrace, error) {
	d, err := r.Decoder(typeID)
	if err != nil {
		return nil, err
	}

	traces := make([]FieldTrace, 0, len(d.order))
	for _, f := range d.Fields() {
		ft := FieldTrace{
			Name:  f.Name,
			Start: f.Start,
			End:   f.End,
			Kind:  f.Kind.String(),
		}
		if window, err := payload.Slice(f.Start, f.End); err == nil {
			ft.Bits = window.String()
		}
		v, err := f.Decode(payload)
		if err != nil {
			ft.Error = err.Error()
		} else {
			ft.Value = v
		}
		traces = append(traces, ft)
	}
	return traces, nil
}
