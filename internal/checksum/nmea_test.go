package checksum

import "testing"

// Sentences captured from live receivers with known valid checksums.
var testCases = []struct {
	name  string
	line  string
	valid bool
}{
	{"class A position", "!ABVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*1F", true},
	{"with fill bits", "!AIVDM,1,1,,B,H52R9E1<D<tpB1LTp@000000000,2*5C", true},
	{"static part 1", "!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C", true},
	{"static part 2", "!AIVDM,2,2,1,A,88888888880,2*25", true},
	{"timestamp prefix", "1454124053.25 !AIVDM,1,1,,A,13u?etPv2;0n:dDPwUM1U1Cb069D,0*24", true},
	{"trailing newline", "!AIVDM,3,3,3,A,j;lM8vfK0,2*34\r\n", true},
	{"corrupted payload", "!ABVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1D,0*1F", false},
	{"wrong checksum", "!AIVDM,2,2,1,A,88888888880,2*26", false},
}

func TestVerify(t *testing.T) {
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verify(tc.line); got != tc.valid {
				t.Errorf("Verify() = %v, want %v", got, tc.valid)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	res, ok := Check("junk !AIVDM,2,2,1,A,88888888880,2*26 trailing")
	if !ok {
		t.Fatal("Check() ok = false")
	}
	if res.Sentence != "!AIVDM,2,2,1,A,88888888880,2*26" {
		t.Errorf("Sentence = %q", res.Sentence)
	}
	if res.Expected != 0x26 || res.Computed != 0x25 || res.Valid {
		t.Errorf("Check() = %+v, want expected 26 computed 25 invalid", res)
	}
}

func TestCheck_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"no sentence here",
		"!AIVDM,1,1,,A,1,0",
		"!AIVDM,1,1,,A,1,0*",
		"!AIVDM,1,1,,A,1,0*G1",
		"!AIVDM,1,1,,A,1,0*1",
	} {
		if _, ok := Check(line); ok {
			t.Errorf("Check(%q) ok = true, want false", line)
		}
		if Verify(line) {
			t.Errorf("Verify(%q) = true", line)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(Compute("AIVDM,2,2,1,A,88888888880,2")); got != "25" {
		t.Errorf("Format(Compute()) = %q, want %q", got, "25")
	}
	if got := Format(0x0a); got != "0A" {
		t.Errorf("Format(0x0a) = %q, want %q", got, "0A")
	}
}

func TestHexToByte(t *testing.T) {
	tests := []struct {
		hi, lo byte
		want   byte
	}{
		{'0', '0', 0x00},
		{'F', 'F', 0xFF},
		{'a', 'b', 0xAB},
		{'7', 'e', 0x7E},
	}
	for _, tt := range tests {
		if got := HexToByte(tt.hi, tt.lo); got != tt.want {
			t.Errorf("HexToByte(%c, %c) = %02X, want %02X", tt.hi, tt.lo, got, tt.want)
		}
	}
}
