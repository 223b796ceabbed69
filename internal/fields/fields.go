// Package fields decodes individual AIS payload fields from a bit window.
//
// Each Field binds its decode function once, when it is built from a layout
// entry, so decoding never re-dispatches on the type tag.
package fields

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ais_parser/internal/bits"
)

var (
	// ErrUnsupportedType is returned when a layout type tag has no decoder.
	ErrUnsupportedType = errors.New("fields: unsupported type tag")
	// ErrInvalidRange is returned for a layout entry whose bit range is unusable.
	ErrInvalidRange = errors.New("fields: invalid bit range")
)

// Kind is the closed set of field decode kinds.
type Kind int

const (
	KindUnsigned       Kind = iota // u
	KindUnsignedTenths             // U1
	KindSigned3                    // I3
	KindSigned4                    // I4
	KindBool                       // b
	KindText                       // t
	KindIgnored                    // x
	KindEnum                       // e
	KindMMSI                       // mmsi
	KindLatitude                   // lat
	KindLongitude                  // lon
)

var kindTags = map[string]Kind{
	"u":    KindUnsigned,
	"U1":   KindUnsignedTenths,
	"I3":   KindSigned3,
	"I4":   KindSigned4,
	"b":    KindBool,
	"t":    KindText,
	"x":    KindIgnored,
	"e":    KindEnum,
	"mmsi": KindMMSI,
	"lat":  KindLatitude,
	"lon":  KindLongitude,
}

// ParseKind maps a layout type tag to its Kind.
func ParseKind(tag string) (Kind, error) {
	k, ok := kindTags[tag]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, tag)
	}
	return k, nil
}

// String returns the layout tag for k.
func (k Kind) String() string {
	for tag, kind := range kindTags {
		if kind == k {
			return tag
		}
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Sentinel positions meaning "not available".
const (
	LatitudeNotAvailable  = 91.0
	LongitudeNotAvailable = 181.0
)

// Ignored is the raw value of a reserved or spare field.
type Ignored uint64

func (v Ignored) String() string {
	return fmt.Sprintf("ignored(%d)", uint64(v))
}

// Enum is the raw numeric code of an enumerated field. Codes are not mapped to names.
type Enum uint64

type decodeFunc func(bits.BitString) (any, error)

// Field is a named, typed bit window of a message layout.
// Start and End are half-open: the field covers bits [Start, End).
type Field struct {
	Name  string
	Start int
	End   int
	Kind  Kind

	dec decodeFunc
}

// NewField builds a field from an inclusive layout entry [first, last].
func NewField(name string, first, last int, tag string) (Field, error) {
	if first < 0 || last < first {
		return Field{}, fmt.Errorf("%w: %s [%d,%d]", ErrInvalidRange, name, first, last)
	}
	kind, err := ParseKind(tag)
	if err != nil {
		return Field{}, fmt.Errorf("field %s: %w", name, err)
	}
	return Field{
		Name:  name,
		Start: first,
		End:   last + 1,
		Kind:  kind,
		dec:   decoderFor(kind),
	}, nil
}

// Width returns the number of bits covered by the field.
func (f Field) Width() int {
	return f.End - f.Start
}

// Decode extracts the field from a full message payload. A payload too short
// for the field yields an error wrapping bits.ErrRange.
func (f Field) Decode(payload bits.BitString) (any, error) {
	window, err := payload.Slice(f.Start, f.End)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	v, err := f.dec(window)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return v, nil
}

func decoderFor(k Kind) decodeFunc {
	switch k {
	case KindUnsigned:
		return func(b bits.BitString) (any, error) { return b.Uint64() }
	case KindUnsignedTenths:
		return func(b bits.BitString) (any, error) {
			v, err := b.Uint64()
			if err != nil {
				return nil, err
			}
			return float64(v) / 10.0, nil
		}
	case KindSigned3:
		return func(b bits.BitString) (any, error) { return Scaled(b, 3) }
	case KindSigned4:
		return func(b bits.BitString) (any, error) { return Scaled(b, 4) }
	case KindBool:
		return func(b bits.BitString) (any, error) {
			v, err := b.Uint64()
			if err != nil {
				return nil, err
			}
			return v == 1, nil
		}
	case KindText:
		return func(b bits.BitString) (any, error) { return Text(b), nil }
	case KindIgnored:
		return func(b bits.BitString) (any, error) {
			v, err := b.Uint64()
			return Ignored(v), err
		}
	case KindEnum:
		return func(b bits.BitString) (any, error) {
			v, err := b.Uint64()
			return Enum(v), err
		}
	case KindMMSI:
		return func(b bits.BitString) (any, error) {
			v, err := b.Uint64()
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("%09d", v), nil
		}
	case KindLatitude:
		return positionDecoder(LatitudeNotAvailable)
	case KindLongitude:
		return positionDecoder(LongitudeNotAvailable)
	}
	panic("fields: unhandled kind " + k.String())
}

// positionDecoder returns an I4 decoder that maps the sentinel to nil.
func positionDecoder(sentinel float64) decodeFunc {
	return func(b bits.BitString) (any, error) {
		v, err := Scaled(b, 4)
		if err != nil {
			return nil, err
		}
		if v == sentinel {
			return nil, nil
		}
		return v, nil
	}
}

// Signed reads b as a two's-complement integer of len(b) bits.
func Signed(b bits.BitString) (int64, error) {
	n := b.Len()
	if n == 0 {
		return 0, nil
	}
	u, err := b.Uint64()
	if err != nil {
		return 0, err
	}
	if n == 64 {
		return int64(u), nil
	}
	v := int64(u)
	if u&(1<<(n-1)) != 0 {
		v -= 1 << n
	}
	return v, nil
}

// Scaled reads b as a two's-complement integer divided by 60*10^scale, rounded
// to scale decimal places.
func Scaled(b bits.BitString, scale int) (float64, error) {
	v, err := Signed(b)
	if err != nil {
		return 0, err
	}
	raw := float64(v) / 60.0 / math.Pow10(scale)
	return round(raw, scale), nil
}

// round matches fixed-point "%.Nf" formatting of raw.
func round(raw float64, places int) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(raw, 'f', places, 64), 64)
	if err != nil {
		return raw
	}
	return out
}

// Text decodes packed 6-bit AIS characters. Values above 31 map to themselves,
// the rest are offset by 64. Surrounding whitespace and trailing '@' padding are
// removed. A trailing group shorter than 6 bits is decoded by its own value.
func Text(b bits.BitString) string {
	var sb strings.Builder
	sb.Grow(b.Len()/6 + 1)
	for off := 0; off < b.Len(); off += 6 {
		end := min(off+6, b.Len())
		group, _ := b.Slice(off, end)
		v, _ := group.Uint64()
		if v <= 31 {
			v += 64
		}
		sb.WriteByte(byte(v))
	}
	text := strings.TrimSpace(sb.String())
	text = strings.TrimRight(text, "@")
	return strings.TrimSpace(text)
}
