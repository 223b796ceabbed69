package ais

import (
	"time"

	"ais_parser/internal/bits"
)

// Fragment is one physical line of a multi-line message.
type Fragment struct {
	Talker  Talker
	Type    SentenceType
	Total   int // Number of fragments in the group.
	Index   int // 1-based position in the group.
	GroupID int // Sequential message id; 0 when the line left it empty.
	Channel string
	Payload bits.BitString
	Time    time.Time // Receive time from the line prefix; zero when absent.
	Raw     string
}

// Key returns the grouping key shared by every fragment of a message.
func (f *Fragment) Key() Key {
	return Key{
		Talker:  f.Talker,
		Type:    f.Type,
		Total:   f.Total,
		GroupID: f.GroupID,
		Channel: f.Channel,
	}
}

// IsFirst reports whether f starts a group.
func (f *Fragment) IsFirst() bool {
	return f.Index == 1
}

// IsLast reports whether f completes a group.
func (f *Fragment) IsLast() bool {
	return f.Index == f.Total
}

// Follows reports whether f is the fragment directly after prev in the same group.
func (f *Fragment) Follows(prev *Fragment) bool {
	return prev != nil && f.Index == prev.Index+1 && f.Key() == prev.Key()
}
