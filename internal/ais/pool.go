package ais

import "fmt"

// PoolState is the reassembly state of a FragmentPool.
type PoolState int

const (
	PoolEmpty        PoolState = iota // Nothing buffered or waiting.
	PoolAccumulating                  // A group is partially buffered.
	PoolReady                         // A completed sentence waits to be popped.
)

func (s PoolState) String() string {
	switch s {
	case PoolEmpty:
		return "empty"
	case PoolAccumulating:
		return "accumulating"
	case PoolReady:
		return "ready"
	}
	return fmt.Sprintf("PoolState(%d)", int(s))
}

// PoolStats counts reassembly outcomes.
type PoolStats struct {
	Completed int `json:"completed"`
	Resets    int `json:"resets"`  // Partial groups discarded on a broken sequence.
	Orphans   int `json:"orphans"` // Fragments dropped with no group to continue.
	Dropped   int `json:"dropped"` // Completed sentences replaced before being popped.
}

// FragmentPool reassembles one stream of fragments into sentences. It holds
// at most one in-progress group and one completed sentence.
// A FragmentPool is not safe for concurrent use.
type FragmentPool struct {
	buf   []*Fragment
	full  *Sentence
	stats PoolStats
}

// NewFragmentPool returns an empty pool.
func NewFragmentPool() *FragmentPool {
	return &FragmentPool{}
}

// Add buffers a fragment. A fragment that does not follow the buffered one
// discards the partial group first. A fragment that cannot start a group
// is dropped and reported with ErrOrphanFragment. Completing a group replaces
// any sentence not yet popped.
func (p *FragmentPool) Add(f *Fragment) error {
	if len(p.buf) > 0 && !f.Follows(p.buf[len(p.buf)-1]) {
		p.buf = p.buf[:0]
		p.stats.Resets++
	}
	if len(p.buf) == 0 && !f.IsFirst() {
		p.stats.Orphans++
		return fmt.Errorf("%w: part %d of %d, group %d, channel %q",
			ErrOrphanFragment, f.Index, f.Total, f.GroupID, f.Channel)
	}

	p.buf = append(p.buf, f)
	if f.IsLast() {
		if p.full != nil {
			p.stats.Dropped++
		}
		p.full = FromFragments(p.buf)
		p.buf = nil
		p.stats.Completed++
	}
	return nil
}

// HasFullSentence reports whether a completed sentence is waiting.
func (p *FragmentPool) HasFullSentence() bool {
	return p.full != nil
}

// PopFullSentence returns the completed sentence and clears it.
func (p *FragmentPool) PopFullSentence() (*Sentence, error) {
	if p.full == nil {
		return nil, ErrEmptyPool
	}
	s := p.full
	p.full = nil
	return s, nil
}

// State returns the current reassembly state.
func (p *FragmentPool) State() PoolState {
	switch {
	case p.full != nil:
		return PoolReady
	case len(p.buf) > 0:
		return PoolAccumulating
	default:
		return PoolEmpty
	}
}

// Pending returns the number of buffered fragments.
func (p *FragmentPool) Pending() int {
	return len(p.buf)
}

// Stats returns the pool counters.
func (p *FragmentPool) Stats() PoolStats {
	return p.stats
}
