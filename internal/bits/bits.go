// Package bits provides an immutable, bit-addressed value type for AIS payloads.
//
// AIS payloads are packed 6-bit symbols, so field boundaries rarely fall on a byte
// boundary. BitString lets callers slice at arbitrary bit offsets and read the
// window as a big-endian unsigned integer.
package bits

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrFormat is returned for malformed bit text or armored payload characters.
	ErrFormat = errors.New("bits: malformed input")
	// ErrRange is returned when a bit range falls outside the available bits.
	ErrRange = errors.New("bits: range out of bounds")
)

// BitString is an immutable sequence of bits. Bit 0 is the most significant bit
// when the string is read as an integer. The zero value is an empty BitString.
type BitString struct {
	set *bitset.BitSet
	n   uint
}

// Empty returns a zero-length BitString.
func Empty() BitString {
	return BitString{}
}

// FromBinaryDigits parses a string of '0' and '1' characters.
func FromBinaryDigits(text string) (BitString, error) {
	set := bitset.New(uint(len(text)))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '0':
		case '1':
			set.Set(uint(i))
		default:
			return BitString{}, fmt.Errorf("%w: %q at offset %d is not a binary digit", ErrFormat, text[i], i)
		}
	}
	return BitString{set: set, n: uint(len(text))}, nil
}

// MustFromBinaryDigits is like FromBinaryDigits but panics on malformed input.
// Intended for constants in tests and tables.
func MustFromBinaryDigits(text string) BitString {
	b, err := FromBinaryDigits(text)
	if err != nil {
		panic(err)
	}
	return b
}

// FromUnsigned returns the width-bit big-endian representation of value.
// Bits of value above width are discarded.
func FromUnsigned(value uint64, width int) BitString {
	if width <= 0 {
		return BitString{}
	}
	n := uint(width)
	set := bitset.New(n)
	for i := uint(0); i < n; i++ {
		shift := n - 1 - i
		if shift < 64 && (value>>shift)&1 == 1 {
			set.Set(i)
		}
	}
	return BitString{set: set, n: n}
}

// Len returns the number of bits.
func (b BitString) Len() int {
	return int(b.n)
}

// Bit reports whether bit i is set. It panics if i is out of range, like a slice index.
func (b BitString) Bit(i int) bool {
	if i < 0 || uint(i) >= b.n {
		panic(fmt.Sprintf("bits: index %d out of range [0,%d)", i, b.n))
	}
	return b.set.Test(uint(i))
}

// Slice returns the bits in the half-open range [start, end).
func (b BitString) Slice(start, end int) (BitString, error) {
	if start < 0 || end < start || uint(end) > b.n {
		return BitString{}, fmt.Errorf("%w: [%d,%d) of %d bits", ErrRange, start, end, b.n)
	}
	n := uint(end - start)
	if n == 0 {
		return BitString{}, nil
	}
	set := bitset.New(n)
	for i := uint(0); i < n; i++ {
		if b.set.Test(uint(start) + i) {
			set.Set(i)
		}
	}
	return BitString{set: set, n: n}, nil
}

// Append returns a new BitString with other's bits following b's bits.
func (b BitString) Append(other BitString) BitString {
	return Concat(b, other)
}

// Concat returns a followed by c.
func Concat(a, c BitString) BitString {
	return Join(a, c)
}

// Join concatenates parts left to right.
func Join(parts ...BitString) BitString {
	var total uint
	for _, p := range parts {
		total += p.n
	}
	if total == 0 {
		return BitString{}
	}
	set := bitset.New(total)
	var off uint
	for _, p := range parts {
		for i := uint(0); i < p.n; i++ {
			if p.set.Test(i) {
				set.Set(off + i)
			}
		}
		off += p.n
	}
	return BitString{set: set, n: total}
}

// Uint64 interprets the bits as a big-endian unsigned integer.
// An empty BitString is 0. More than 64 bits yields ErrRange; use Big for those.
func (b BitString) Uint64() (uint64, error) {
	if b.n > 64 {
		return 0, fmt.Errorf("%w: %d bits do not fit in uint64", ErrRange, b.n)
	}
	var v uint64
	for i := uint(0); i < b.n; i++ {
		v <<= 1
		if b.set.Test(i) {
			v |= 1
		}
	}
	return v, nil
}

// Big interprets the bits as a big-endian unsigned integer of any width.
func (b BitString) Big() *big.Int {
	v := new(big.Int)
	for i := uint(0); i < b.n; i++ {
		v.Lsh(v, 1)
		if b.set.Test(i) {
			v.SetBit(v, 0, 1)
		}
	}
	return v
}

// Equal reports whether both strings have the same length and bits.
func (b BitString) Equal(other BitString) bool {
	if b.n != other.n {
		return false
	}
	for i := uint(0); i < b.n; i++ {
		if b.set.Test(i) != other.set.Test(i) {
			return false
		}
	}
	return true
}

// String renders the bits as '0'/'1' digits.
func (b BitString) String() string {
	var sb strings.Builder
	sb.Grow(int(b.n))
	for i := uint(0); i < b.n; i++ {
		if b.set.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
