package source

import (
	"context"
	"time"
)

// Default reconnect delays.
const (
	DefaultRetryMin = time.Second
	DefaultRetryMax = 30 * time.Second
)

// Backoff is an exponential reconnect delay. It is not safe for
// concurrent use.
type Backoff struct {
	Min, Max time.Duration
	next     time.Duration
}

// NewBackoff returns a backoff between lo and hi, using the defaults for
// non-positive values.
func NewBackoff(lo, hi time.Duration) *Backoff {
	if lo <= 0 {
		lo = DefaultRetryMin
	}
	if hi <= 0 {
		hi = DefaultRetryMax
	}
	if hi < lo {
		hi = lo
	}
	return &Backoff{Min: lo, Max: hi, next: lo}
}

// Next returns the current delay and doubles the following one, up to Max.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// Reset restarts the sequence at Min after a successful connection.
func (b *Backoff) Reset() {
	b.next = b.Min
}

// Wait sleeps for the next delay. It returns false if ctx ends first.
func (b *Backoff) Wait(ctx context.Context) bool {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
