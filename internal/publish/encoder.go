// Package publish fans decoded records out to message brokers.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnknownFormat is returned for an unsupported payload format.
var ErrUnknownFormat = errors.New("unknown payload format")

// Encoder serialises a record for the wire.
type Encoder interface {
	Encode(v any) ([]byte, error)
	ContentType() string
}

// NewEncoder returns the encoder for "json" (the default when empty) or "cbor".
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case "", "json":
		return jsonEncoder{}, nil
	case "cbor":
		opts := cbor.EncOptions{
			// Make sure that maps have ordered keys
			Sort: cbor.SortCoreDeterministic,
			Time: cbor.TimeRFC3339Nano,
		}
		em, err := opts.EncMode()
		if err != nil {
			return nil, err
		}
		return cborEncoder{em: em}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type jsonEncoder struct{}

func (jsonEncoder) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonEncoder) ContentType() string          { return "application/json" }

type cborEncoder struct {
	em cbor.EncMode
}

func (e cborEncoder) Encode(v any) ([]byte, error) { return e.em.Marshal(v) }
func (cborEncoder) ContentType() string            { return "application/cbor" }
