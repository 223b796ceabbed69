// Package ais provides the AIVDM/AIVDO sentence model, fragment reassembly
// and a line-oriented stream parser.
package ais

import (
	"errors"

	"ais_parser/internal/bits"
)

var (
	// ErrEmptyPool is returned when popping a pool with no completed sentence.
	ErrEmptyPool = errors.New("ais: no completed sentence in pool")
	// ErrEmptyQueue is returned when the parser has no sentence queued.
	ErrEmptyQueue = errors.New("ais: no sentence queued")
	// ErrOrphanFragment is returned when a fragment arrives with no group to
	// continue. The fragment is dropped.
	ErrOrphanFragment = errors.New("ais: orphan fragment")
)

// Talker identifies the sending device class, e.g. "AI" or "AB".
type Talker string

// SentenceType is the NMEA sentence formatter, "VDM" or "VDO".
type SentenceType string

const (
	TypeVDM SentenceType = "VDM" // Reports from other vessels.
	TypeVDO SentenceType = "VDO" // Own-vessel reports.
)

// Key groups fragments that belong to the same multi-part message.
type Key struct {
	Talker  Talker
	Type    SentenceType
	Total   int
	GroupID int
	Channel string
}

// Decoder resolves payload fields by message type id.
// *registry.Registry satisfies it.
type Decoder interface {
	Decode(typeID int, name string, payload bits.BitString) (any, error)
	DecodeAll(typeID int, payload bits.BitString) (map[string]any, error)
}
