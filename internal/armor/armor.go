// Package armor converts NMEA 6-bit armored payload text to and from bits.
package armor

import (
	"fmt"
	"strings"

	"ais_parser/internal/bits"
)

// SymbolBits is the number of payload bits carried by one armored character.
const SymbolBits = 6

// MaxFillBits is the largest valid fill-bit count.
const MaxFillBits = 5

// lookup maps an ASCII byte to its 6-bit value, or -1 when not in the alphabet.
var lookup = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for c := 48; c < 88; c++ {
		t[c] = int8(c - 48)
	}
	for c := 96; c < 120; c++ {
		t[c] = int8(c - 56)
	}
	return t
}()

// Value returns the 6-bit value of an armored character.
func Value(c byte) (int, bool) {
	v := lookup[c]
	return int(v), v >= 0
}

// Char returns the armored character for a 6-bit value.
func Char(v int) byte {
	v &= 0x3f
	if v < 40 {
		return byte(v + 48)
	}
	return byte(v + 56)
}

// Decode converts armored payload text to bits. Every character but the last
// contributes 6 bits; the last contributes only its leading 6-fillBits bits.
// The result therefore has 6*(len(payload)-1) + (6-fillBits) bits.
// An empty payload decodes to an empty BitString.
func Decode(payload string, fillBits int) (bits.BitString, error) {
	if fillBits < 0 || fillBits > MaxFillBits {
		return bits.BitString{}, fmt.Errorf("%w: fill bits %d outside [0,%d]", bits.ErrFormat, fillBits, MaxFillBits)
	}
	if payload == "" {
		return bits.Empty(), nil
	}

	parts := make([]bits.BitString, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		v, ok := Value(payload[i])
		if !ok {
			return bits.BitString{}, fmt.Errorf("%w: armor character %q at offset %d", bits.ErrFormat, payload[i], i)
		}
		sym := bits.FromUnsigned(uint64(v), SymbolBits)
		if i == len(payload)-1 && fillBits > 0 {
			// Slice bounds are constant and in range.
			sym, _ = sym.Slice(0, SymbolBits-fillBits)
		}
		parts = append(parts, sym)
	}
	return bits.Join(parts...), nil
}

// Encode armors b, padding the last symbol with zero bits. It returns the
// payload text and the fill-bit count to put in the sentence.
func Encode(b bits.BitString) (string, int) {
	if b.Len() == 0 {
		return "", 0
	}
	fill := (SymbolBits - b.Len()%SymbolBits) % SymbolBits
	padded := bits.Concat(b, bits.FromUnsigned(0, fill))

	var sb strings.Builder
	sb.Grow(padded.Len() / SymbolBits)
	for off := 0; off < padded.Len(); off += SymbolBits {
		sym, _ := padded.Slice(off, off+SymbolBits)
		v, _ := sym.Uint64()
		sb.WriteByte(Char(int(v)))
	}
	return sb.String(), fill
}
