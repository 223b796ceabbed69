// Package extractor turns decoded AIS sentences into storage-ready records.
// This package is database-agnostic and can be used with any storage backend.
package extractor

import (
	"errors"
	"strings"
	"time"

	"ais_parser/internal/ais"
	"ais_parser/internal/fields"
	"ais_parser/internal/registry"
)

// AIS "not available" values.
const (
	HeadingNotAvailable = 511
	SpeedNotAvailable   = 102.3
	CourseNotAvailable  = 360.0
)

// VesselUpdate contains the vessel state carried by one message.
// Nil pointers mean the message did not carry a usable value.
type VesselUpdate struct {
	MMSI        string   `json:"mmsi"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`   // Knots.
	Course      *float64 `json:"course,omitempty"`  // Degrees over ground.
	Heading     *int     `json:"heading,omitempty"` // True heading, degrees.
	Status      *int     `json:"status,omitempty"`  // Navigation status code.
	Name        string   `json:"name,omitempty"`
	Callsign    string   `json:"callsign,omitempty"`
	Destination string   `json:"destination,omitempty"`
	ShipType    *int     `json:"ship_type,omitempty"`
	IMO         int      `json:"imo,omitempty"`
	Draught     *float64 `json:"draught,omitempty"`
}

// HasPosition reports whether the update carries both coordinates.
func (u *VesselUpdate) HasPosition() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Record is a decoded sentence with its header metadata.
type Record struct {
	TypeID       int            `json:"type"`
	Description  string         `json:"description,omitempty"`
	Talker       string         `json:"talker"`
	SentenceType string         `json:"sentence_type"`
	Channel      string         `json:"channel,omitempty"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	PayloadBits  int            `json:"payload_bits"`
	Raw          []string       `json:"raw"`
	Fields       map[string]any `json:"fields,omitempty"`
	Vessel       *VesselUpdate  `json:"vessel,omitempty"`
}

// MMSI returns the vessel MMSI, or "" when the record carries none.
func (r *Record) MMSI() string {
	if r.Vessel == nil {
		return ""
	}
	return r.Vessel.MMSI
}

// Extract decodes every field of s that fits in its payload. A type with no
// layout still yields a record, without fields.
func Extract(s *ais.Sentence, reg *registry.Registry) (*Record, error) {
	rec := &Record{
		TypeID:       s.TypeID(),
		Talker:       string(s.Talker),
		SentenceType: string(s.Type),
		Channel:      s.Channel,
		PayloadBits:  s.Payload.Len(),
		Raw:          s.Raw,
	}
	if s.HasTime() {
		ts := s.Time
		rec.Timestamp = &ts
	}

	dec, err := reg.Decoder(rec.TypeID)
	if errors.Is(err, registry.ErrUnknownType) {
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Description = dec.Description

	values, err := s.Fields(reg)
	if err != nil {
		return nil, err
	}
	rec.Fields = values
	rec.Vessel = vesselFrom(values)
	return rec, nil
}

// vesselFrom builds the vessel update, or nil when no MMSI was decoded.
func vesselFrom(values map[string]any) *VesselUpdate {
	mmsi, _ := values["mmsi"].(string)
	if mmsi == "" {
		return nil
	}

	u := &VesselUpdate{MMSI: mmsi}
	u.Latitude = floatField(values, "lat")
	u.Longitude = floatField(values, "lon")
	if !u.HasPosition() {
		u.Latitude, u.Longitude = nil, nil
	}

	if v := floatField(values, "speed"); v != nil && *v < SpeedNotAvailable {
		u.Speed = v
	}
	if v := floatField(values, "course"); v != nil && *v < CourseNotAvailable {
		u.Course = v
	}
	if v := intField(values, "heading"); v != nil && *v != HeadingNotAvailable {
		u.Heading = v
	}
	u.Status = intField(values, "status")
	u.ShipType = intField(values, "shiptype")
	if v := intField(values, "imo"); v != nil {
		u.IMO = *v
	}
	if v := floatField(values, "draught"); v != nil && *v > 0 {
		u.Draught = v
	}

	u.Name = textField(values, "shipname")
	u.Callsign = textField(values, "callsign")
	u.Destination = textField(values, "destination")
	return u
}

func floatField(values map[string]any, name string) *float64 {
	if v, ok := values[name].(float64); ok {
		return &v
	}
	return nil
}

func intField(values map[string]any, name string) *int {
	var n int
	switch v := values[name].(type) {
	case uint64:
		n = int(v)
	case fields.Enum:
		n = int(v)
	default:
		return nil
	}
	return &n
}

// textField returns a text value with AIS padding and repeated spaces removed.
func textField(values map[string]any, name string) string {
	s, _ := values[name].(string)
	return NormaliseText(s)
}

// NormaliseText collapses internal whitespace runs to single spaces.
// For example, "EVER  DIADEM " becomes "EVER DIADEM".
func NormaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
