// Package source reads raw text lines from files, serial ports, HTTP
// streams and UDP sockets.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnknownType is returned by New for an unsupported source type.
var ErrUnknownType = errors.New("unknown source type")

var errInputClosed = errors.New("input closed")

// Source types.
const (
	TypeFile   = "file"
	TypeSerial = "serial"
	TypeHTTP   = "http"
	TypeUDP    = "udp"
)

// DefaultBaud is the standard AIS receiver serial speed.
const DefaultBaud = 38400

// Line is one line of text read from a source.
type Line struct {
	Text   string
	Source string
	Time   time.Time // Receive time.
}

// Source produces lines until its input ends or ctx is cancelled.
// Run returns nil on cancellation.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- Line) error
}

// Config describes one source.
type Config struct {
	Type     string        `yaml:"type"` // Guessed from Address when empty.
	Address  string        `yaml:"address"`
	Baud     int           `yaml:"baud"`
	RetryMin time.Duration `yaml:"retry_min"`
	RetryMax time.Duration `yaml:"retry_max"`
}

// Option configures a source.
type Option func(b *base)

// WithLogger sets the source logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// GuessType picks a source type from an address: /dev/tty* is serial,
// http(s):// is HTTP, udp:// is UDP and anything else is a file.
func GuessType(address string) string {
	switch {
	case strings.HasPrefix(address, "/dev/tty"):
		return TypeSerial
	case strings.HasPrefix(address, "http://"), strings.HasPrefix(address, "https://"):
		return TypeHTTP
	case strings.HasPrefix(address, "udp://"):
		return TypeUDP
	default:
		return TypeFile
	}
}

// New creates the source described by cfg.
func New(cfg Config, opts ...Option) (Source, error) {
	typ := cfg.Type
	if typ == "" {
		typ = GuessType(cfg.Address)
	}

	b := base{
		name:    cfg.Address,
		logger:  zerolog.Nop(),
		backoff: NewBackoff(cfg.RetryMin, cfg.RetryMax),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With().Str("source", b.name).Logger()

	switch typ {
	case TypeFile:
		return &FileSource{base: b, Path: cfg.Address}, nil
	case TypeSerial:
		baud := cfg.Baud
		if baud <= 0 {
			baud = DefaultBaud
		}
		return &SerialSource{base: b, Device: cfg.Address, Baud: baud}, nil
	case TypeHTTP:
		return &HTTPSource{base: b, URL: cfg.Address}, nil
	case TypeUDP:
		return &UDPSource{base: b, Addr: strings.TrimPrefix(cfg.Address, "udp://")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

type base struct {
	name    string
	logger  zerolog.Logger
	backoff *Backoff
}

func (b *base) Name() string { return b.name }

// emit sends one line unless ctx is done. It reports whether the line was
// delivered.
func (b *base) emit(ctx context.Context, out chan<- Line, text string) bool {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return true
	}
	select {
	case out <- Line{Text: text, Source: b.name, Time: time.Now().UTC()}:
		return true
	case <-ctx.Done():
		return false
	}
}

// scan emits every line of r. Lines with non-ASCII bytes are dropped when
// asciiOnly is set.
func (b *base) scan(ctx context.Context, r io.Reader, out chan<- Line, asciiOnly bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if asciiOnly && !isASCII(text) {
			b.logger.Debug().Str("line", text).Msg("skipped undecodable input")
			continue
		}
		if !b.emit(ctx, out, text) {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
