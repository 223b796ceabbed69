package ais

import (
	"errors"
	"sort"
)

// ParserStats aggregates parser and pool counters.
type ParserStats struct {
	Lines     int `json:"lines"`
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
	Sentences int `json:"sentences"` // Sentences queued, single-line and reassembled.
	Fragments int `json:"fragments"`
	PoolStats
}

// Parser turns a stream of raw lines into complete sentences. Fragments are
// reassembled per radio channel, with a pool created the first time a
// channel is seen. A Parser is not safe for concurrent use.
type Parser struct {
	pools map[string]*FragmentPool
	queue []*Sentence
	stats ParserStats
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{pools: make(map[string]*FragmentPool)}
}

// Add parses one raw line. Lines with no sentence are skipped silently.
// Undecodable payloads and orphan fragments are returned as errors; the
// parser remains usable after either.
func (p *Parser) Add(raw string) error {
	p.stats.Lines++
	s, f, err := ParseLine(raw)
	if err != nil {
		p.stats.Errors++
		return err
	}

	switch {
	case s != nil:
		p.stats.Matched++
		p.push(s)
	case f != nil:
		p.stats.Matched++
		p.stats.Fragments++
		pool := p.pool(f.Channel)
		err = pool.Add(f)
		if pool.HasFullSentence() {
			full, _ := pool.PopFullSentence()
			p.push(full)
		}
	default:
		p.stats.Skipped++
	}
	return err
}

func (p *Parser) push(s *Sentence) {
	p.queue = append(p.queue, s)
	p.stats.Sentences++
}

func (p *Parser) pool(channel string) *FragmentPool {
	pool, ok := p.pools[channel]
	if !ok {
		pool = NewFragmentPool()
		p.pools[channel] = pool
	}
	return pool
}

// HasSentence reports whether a sentence is queued.
func (p *Parser) HasSentence() bool {
	return len(p.queue) > 0
}

// NextSentence removes and returns the oldest queued sentence.
func (p *Parser) NextSentence() (*Sentence, error) {
	if len(p.queue) == 0 {
		return nil, ErrEmptyQueue
	}
	s := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return s, nil
}

// Queued returns the number of sentences waiting.
func (p *Parser) Queued() int {
	return len(p.queue)
}

// Channels returns the channels that have a fragment pool, sorted.
func (p *Parser) Channels() []string {
	out := make([]string, 0, len(p.pools))
	for ch := range p.pools {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Pool returns the fragment pool for a channel, or nil if none exists yet.
func (p *Parser) Pool(channel string) *FragmentPool {
	return p.pools[channel]
}

// Stats returns a snapshot of the counters, including every pool's.
func (p *Parser) Stats() ParserStats {
	st := p.stats
	for _, pool := range p.pools {
		ps := pool.Stats()
		st.Completed += ps.Completed
		st.Resets += ps.Resets
		st.Orphans += ps.Orphans
		st.Dropped += ps.Dropped
	}
	return st
}

// ParseMany feeds every line through a fresh parser and returns all
// completed sentences in order. Per-line errors are joined; the sentences
// decoded from the other lines are still returned.
func ParseMany(lines []string) ([]*Sentence, error) {
	p := NewParser()
	var (
		out  []*Sentence
		errs []error
	)
	for _, line := range lines {
		if err := p.Add(line); err != nil {
			errs = append(errs, err)
		}
		for p.HasSentence() {
			s, _ := p.NextSentence()
			out = append(out, s)
		}
	}
	return out, errors.Join(errs...)
}
