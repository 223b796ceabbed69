package bits

import (
	"errors"
	"testing"
)

func TestFromUnsigned_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		width int
	}{
		{"zero one bit", 0, 1},
		{"one one bit", 1, 1},
		{"six bit max", 63, 6},
		{"mmsi", 235009890, 30},
		{"latitude sentinel", 91 * 600000, 27},
		{"full width", 0xFFFFFFFFFFFFFFFF, 64},
		{"leading zeros", 5, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := FromUnsigned(tt.value, tt.width)
			if b.Len() != tt.width {
				t.Errorf("Len() = %d, want %d", b.Len(), tt.width)
			}
			got, err := b.Uint64()
			if err != nil {
				t.Fatalf("Uint64() error: %v", err)
			}
			if got != tt.value {
				t.Errorf("Uint64() = %d, want %d", got, tt.value)
			}
		})
	}
}

func TestFromUnsigned_Truncates(t *testing.T) {
	b := FromUnsigned(0xFF, 4)
	if b.String() != "1111" {
		t.Errorf("String() = %q, want %q", b.String(), "1111")
	}
}

func TestFromBinaryDigits(t *testing.T) {
	b, err := FromBinaryDigits("000101")
	if err != nil {
		t.Fatalf("FromBinaryDigits error: %v", err)
	}
	if b.Len() != 6 {
		t.Errorf("Len() = %d, want 6", b.Len())
	}
	v, _ := b.Uint64()
	if v != 5 {
		t.Errorf("Uint64() = %d, want 5", v)
	}
	if b.String() != "000101" {
		t.Errorf("String() = %q, want %q", b.String(), "000101")
	}

	empty, err := FromBinaryDigits("")
	if err != nil {
		t.Fatalf("empty input error: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("empty Len() = %d, want 0", empty.Len())
	}
}

func TestFromBinaryDigits_Invalid(t *testing.T) {
	for _, in := range []string{"012", "1 0", "0b101", "x"} {
		if _, err := FromBinaryDigits(in); !errors.Is(err, ErrFormat) {
			t.Errorf("FromBinaryDigits(%q) error = %v, want ErrFormat", in, err)
		}
	}
}

func TestSlice(t *testing.T) {
	b := MustFromBinaryDigits("1100101011")

	tests := []struct {
		start, end int
		want       string
	}{
		{0, 10, "1100101011"},
		{0, 0, ""},
		{10, 10, ""},
		{2, 6, "0010"},
		{9, 10, "1"},
	}
	for _, tt := range tests {
		got, err := b.Slice(tt.start, tt.end)
		if err != nil {
			t.Errorf("Slice(%d,%d) error: %v", tt.start, tt.end, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Slice(%d,%d) = %q, want %q", tt.start, tt.end, got.String(), tt.want)
		}
	}

	// The source must be unchanged by slicing.
	if b.String() != "1100101011" {
		t.Errorf("source mutated: %q", b.String())
	}
}

func TestSlice_OutOfRange(t *testing.T) {
	b := MustFromBinaryDigits("1010")
	bad := [][2]int{{-1, 2}, {0, 5}, {3, 2}, {5, 5}}
	for _, r := range bad {
		if _, err := b.Slice(r[0], r[1]); !errors.Is(err, ErrRange) {
			t.Errorf("Slice(%d,%d) error = %v, want ErrRange", r[0], r[1], err)
		}
	}
}

func TestConcat(t *testing.T) {
	a := MustFromBinaryDigits("101")
	b := MustFromBinaryDigits("0011")
	c := MustFromBinaryDigits("1")

	ab := Concat(a, b)
	if ab.String() != "1010011" {
		t.Errorf("Concat = %q, want %q", ab.String(), "1010011")
	}
	if ab.Len() != a.Len()+b.Len() {
		t.Errorf("Len() = %d, want %d", ab.Len(), a.Len()+b.Len())
	}

	left := Concat(Concat(a, b), c)
	right := Concat(a, Concat(b, c))
	if !left.Equal(right) {
		t.Errorf("concat not associative: %q vs %q", left, right)
	}
	if !Join(a, b, c).Equal(left) {
		t.Errorf("Join = %q, want %q", Join(a, b, c), left)
	}
	if !a.Append(Empty()).Equal(a) {
		t.Errorf("appending empty changed value")
	}
}

func TestEqual(t *testing.T) {
	if !MustFromBinaryDigits("0101").Equal(FromUnsigned(5, 4)) {
		t.Error("expected equal bit strings")
	}
	if MustFromBinaryDigits("0101").Equal(FromUnsigned(5, 5)) {
		t.Error("different lengths must not be equal")
	}
	if !Empty().Equal(BitString{}) {
		t.Error("empty values must be equal")
	}
}

func TestUint64_TooWide(t *testing.T) {
	wide := Concat(FromUnsigned(1, 64), FromUnsigned(1, 1))
	if _, err := wide.Uint64(); !errors.Is(err, ErrRange) {
		t.Errorf("Uint64() error = %v, want ErrRange", err)
	}
	if got := wide.Big().String(); got != "3" {
		t.Errorf("Big() = %s, want 3", got)
	}
}

func TestBit(t *testing.T) {
	b := MustFromBinaryDigits("100")
	if !b.Bit(0) || b.Bit(1) || b.Bit(2) {
		t.Errorf("Bit() mismatch for %q", b)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out of range Bit")
		}
	}()
	b.Bit(3)
}
