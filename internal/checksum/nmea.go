// Package checksum provides NMEA 0183 sentence checksum calculation.
package checksum

import (
	"fmt"
	"strings"
)

// Result describes the checksum check of one line.
type Result struct {
	Sentence string `json:"sentence"`
	Expected byte   `json:"expected"` // Value carried after '*'.
	Computed byte   `json:"computed"`
	Valid    bool   `json:"valid"`
}

// Compute returns the XOR of every byte of body. Body is the text between
// the leading '!' or '$' and the '*'.
func Compute(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// Format renders a checksum as the two upper-case hex digits NMEA uses.
func Format(sum byte) string {
	return fmt.Sprintf("%02X", sum)
}

// Check locates the sentence in line and compares its checksum.
// ok is false when the line holds no delimited sentence with two hex digits
// after the '*'.
func Check(line string) (res Result, ok bool) {
	start := strings.IndexAny(line, "!$")
	if start < 0 {
		return Result{}, false
	}
	star := strings.IndexByte(line[start:], '*')
	if star < 0 {
		return Result{}, false
	}
	star += start
	if star+3 > len(line) || !IsHexDigit(line[star+1]) || !IsHexDigit(line[star+2]) {
		return Result{}, false
	}

	res.Sentence = line[start : star+3]
	res.Expected = HexToByte(line[star+1], line[star+2])
	res.Computed = Compute(line[start+1 : star])
	res.Valid = res.Expected == res.Computed
	return res, true
}

// Verify reports whether line carries a sentence with a correct checksum.
func Verify(line string) bool {
	res, ok := Check(line)
	return ok && res.Valid
}

// IsHexDigit returns true if c is a valid hexadecimal digit (0-9, A-F, a-f).
func IsHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// HexToByte converts two hex characters to a byte.
// Assumes both characters are valid hex digits (use IsHexDigit to verify first).
func HexToByte(high, low byte) byte {
	return hexNibble(high)<<4 | hexNibble(low)
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
