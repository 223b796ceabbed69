package ais

import (
	"time"

	"ais_parser/internal/bits"
)

// Sentence is a complete AIS message, either from a single line or
// reassembled from fragments.
type Sentence struct {
	Talker  Talker
	Type    SentenceType
	Channel string
	Payload bits.BitString
	Time    time.Time // Zero when the source line carried no timestamp.
	Raw     []string  // One entry per physical line, in order.
}

// TypeID returns the message type from the first 6 payload bits, or 0 when
// the payload is shorter than that.
func (s *Sentence) TypeID() int {
	head, err := s.Payload.Slice(0, 6)
	if err != nil {
		return 0
	}
	v, _ := head.Uint64()
	return int(v)
}

// HasTime reports whether the sentence carries a receive timestamp.
func (s *Sentence) HasTime() bool {
	return !s.Time.IsZero()
}

// Decode returns the named field, dispatching on TypeID.
func (s *Sentence) Decode(d Decoder, name string) (any, error) {
	return d.Decode(s.TypeID(), name, s.Payload)
}

// Fields decodes every field of the sentence's type that fits in the payload.
func (s *Sentence) Fields(d Decoder) (map[string]any, error) {
	return d.DecodeAll(s.TypeID(), s.Payload)
}

// FromFragments assembles a sentence from an ordered, complete group.
// Header and timestamp come from the first fragment. It returns nil for an
// empty group.
func FromFragments(frags []*Fragment) *Sentence {
	if len(frags) == 0 {
		return nil
	}
	first := frags[0]
	parts := make([]bits.BitString, len(frags))
	raw := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Payload
		raw[i] = f.Raw
	}
	return &Sentence{
		Talker:  first.Talker,
		Type:    first.Type,
		Channel: first.Channel,
		Payload: bits.Join(parts...),
		Time:    first.Time,
		Raw:     raw,
	}
}
