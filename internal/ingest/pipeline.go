// Package ingest runs line sources through the AIS parser and hands every
// decoded record to the configured sinks.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ais_parser/internal/ais"
	"ais_parser/internal/checksum"
	"ais_parser/internal/extractor"
	"ais_parser/internal/registry"
	"ais_parser/internal/source"
	"ais_parser/internal/state"
)

// Sink receives decoded records.
type Sink interface {
	Write(ctx context.Context, rec *extractor.Record) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, rec *extractor.Record) error

func (f SinkFunc) Write(ctx context.Context, rec *extractor.Record) error { return f(ctx, rec) }

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	ais.ParserStats
	ChecksumFailures int `json:"checksum_failures"`
	DecodeErrors     int `json:"decode_errors"`
	Records          int `json:"records"`
	SinkErrors       int `json:"sink_errors"`
}

// Fields returns the counters as InfluxDB point fields.
func (s Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"lines":             s.Lines,
		"matched":           s.Matched,
		"skipped":           s.Skipped,
		"fragments":         s.Fragments,
		"sentences":         s.Sentences,
		"resets":            s.Resets,
		"orphans":           s.Orphans,
		"dropped":           s.Dropped,
		"checksum_failures": s.ChecksumFailures,
		"decode_errors":     s.DecodeErrors,
		"records":           s.Records,
		"sink_errors":       s.SinkErrors,
	}
}

// Pipeline owns one parser. Lines from every source are funnelled through
// a single consumer, so fragments from different sources share the
// per-channel pools.
type Pipeline struct {
	reg     *registry.Registry
	sources []source.Source
	sinks   []Sink
	tracker *state.Tracker
	verify  bool
	buffer  int
	logger  zerolog.Logger

	mu     sync.Mutex
	parser *ais.Parser
	stats  Stats
}

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSinks adds record sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithTracker merges every record into the vessel tracker before the sinks
// see it.
func WithTracker(t *state.Tracker) Option {
	return func(p *Pipeline) {
		p.tracker = t
	}
}

// WithChecksum drops lines whose NMEA checksum does not match.
func WithChecksum(verify bool) Option {
	return func(p *Pipeline) {
		p.verify = verify
	}
}

// WithBuffer sets the line channel capacity.
func WithBuffer(n int) Option {
	return func(p *Pipeline) {
		p.buffer = n
	}
}

// New creates a pipeline reading from sources.
func New(reg *registry.Registry, sources []source.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		reg:     reg,
		sources: sources,
		buffer:  256,
		logger:  zerolog.Nop(),
		parser:  ais.NewParser(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads every source until they all end or ctx is cancelled. A source
// error stops the pipeline and is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan source.Line, p.buffer)

	producers, pctx := errgroup.WithContext(gctx)
	for _, src := range p.sources {
		producers.Go(func() error {
			p.logger.Info().Str("source", src.Name()).Msg("source started")
			err := src.Run(pctx, lines)
			p.logger.Info().Str("source", src.Name()).Err(err).Msg("source stopped")
			return err
		})
	}
	g.Go(func() error {
		err := producers.Wait()
		close(lines)
		return err
	})

	g.Go(func() error {
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				p.Process(gctx, line.Text)
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

// Process handles one raw line: checksum screening, parsing, extraction,
// state tracking and fan-out to the sinks.
func (p *Pipeline) Process(ctx context.Context, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verify {
		if res, ok := checksum.Check(ais.SentenceText(text)); ok && !res.Valid {
			p.stats.ChecksumFailures++
			p.logger.Debug().
				Str("line", text).
				Str("expected", checksum.Format(res.Expected)).
				Str("computed", checksum.Format(res.Computed)).
				Msg("checksum mismatch")
			return
		}
	}

	resets := p.parser.Stats().Resets
	err := p.parser.Add(text)
	switch {
	case errors.Is(err, ais.ErrOrphanFragment):
		p.logger.Debug().Str("line", text).Msg("orphan fragment")
	case err != nil:
		p.stats.DecodeErrors++
		p.logger.Debug().Err(err).Str("line", text).Msg("undecodable line")
	}
	if p.parser.Stats().Resets > resets {
		p.logger.Debug().Str("line", text).Msg("fragment pool reset")
	}

	for p.parser.HasSentence() {
		s, _ := p.parser.NextSentence()
		p.handle(ctx, s)
	}
}

func (p *Pipeline) handle(ctx context.Context, s *ais.Sentence) {
	var (
		rec *extractor.Record
		err error
	)
	if p.tracker != nil {
		rec, err = state.ExtractAndUpdate(p.tracker, s, p.reg)
	} else {
		rec, err = extractor.Extract(s, p.reg)
	}
	if err != nil {
		p.stats.DecodeErrors++
		p.logger.Warn().Err(err).Strs("raw", s.Raw).Msg("extract failed")
		return
	}
	p.stats.Records++

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			p.stats.SinkErrors++
			p.logger.Warn().Err(err).Int("type", rec.TypeID).Msg("sink write failed")
		}
	}
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	st.ParserStats = p.parser.Stats()
	return st
}

// PendingFragments returns the number of buffered fragments per channel.
func (p *Pipeline) PendingFragments() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int)
	for _, ch := range p.parser.Channels() {
		out[ch] = p.parser.Pool(ch).Pending()
	}
	return out
}
