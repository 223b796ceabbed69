package extractor

import (
	"testing"

	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

func mustSentence(t *testing.T, lines ...string) *ais.Sentence {
	t.Helper()
	sentences, err := ais.ParseMany(lines)
	if err != nil || len(sentences) != 1 {
		t.Fatalf("ParseMany = %d sentences, %v", len(sentences), err)
	}
	return sentences[0]
}

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestExtract_PositionReport(t *testing.T) {
	s := mustSentence(t, "1454124053 !ABVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*1F")
	rec, err := Extract(s, mustRegistry(t))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if rec.TypeID != 1 || rec.Talker != "AB" || rec.SentenceType != "VDM" || rec.Channel != "A" {
		t.Errorf("header = %d %s %s %s", rec.TypeID, rec.Talker, rec.SentenceType, rec.Channel)
	}
	if rec.Description == "" {
		t.Error("Description is empty")
	}
	if rec.Timestamp == nil || rec.Timestamp.Unix() != 1454124053 {
		t.Errorf("Timestamp = %v, want 1454124053", rec.Timestamp)
	}
	if rec.PayloadBits != 168 || len(rec.Fields) != 16 {
		t.Errorf("PayloadBits = %d, fields = %d, want 168 and 16", rec.PayloadBits, len(rec.Fields))
	}

	v := rec.Vessel
	if v == nil {
		t.Fatal("Vessel = nil")
	}
	if rec.MMSI() != "367678850" {
		t.Errorf("MMSI() = %q, want 367678850", rec.MMSI())
	}
	if !v.HasPosition() || *v.Latitude != 33.7302 || *v.Longitude != -118.2634 {
		t.Errorf("position = %v, %v", v.Latitude, v.Longitude)
	}
	if v.Speed == nil || *v.Speed != 0.1 {
		t.Errorf("Speed = %v, want 0.1", v.Speed)
	}
	if v.Course == nil || *v.Course != 57.8 {
		t.Errorf("Course = %v, want 57.8", v.Course)
	}
	if v.Heading != nil {
		t.Errorf("Heading = %d, want nil for 511", *v.Heading)
	}
	if v.Status == nil || *v.Status != 0 {
		t.Errorf("Status = %v, want 0", v.Status)
	}
}

func TestExtract_StaticData(t *testing.T) {
	s := mustSentence(t,
		"!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C",
		"!AIVDM,2,2,1,A,88888888880,2*25",
	)
	rec, err := Extract(s, mustRegistry(t))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(rec.Raw) != 2 {
		t.Errorf("Raw = %d lines, want 2", len(rec.Raw))
	}
	if rec.Timestamp != nil {
		t.Errorf("Timestamp = %v, want nil", rec.Timestamp)
	}

	v := rec.Vessel
	if v.MMSI != "351759000" || v.Name != "EVER DIADEM" || v.Callsign != "3FOF8" || v.Destination != "NEW YORK" {
		t.Errorf("identity = %+v", v)
	}
	if v.IMO != 9134270 {
		t.Errorf("IMO = %d, want 9134270", v.IMO)
	}
	if v.ShipType == nil || *v.ShipType != 70 {
		t.Errorf("ShipType = %v, want 70", v.ShipType)
	}
	if v.Draught == nil || *v.Draught != 12.2 {
		t.Errorf("Draught = %v, want 12.2", v.Draught)
	}
	if v.HasPosition() || v.Speed != nil {
		t.Error("static report carries position or speed")
	}
}

func TestExtract_UnknownType(t *testing.T) {
	s := mustSentence(t, "!AIVDM,1,1,,B,H52R9E1<D<tpB1LTp@000000000,2*5C")
	rec, err := Extract(s, mustRegistry(t))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if rec.TypeID != 24 || rec.Fields != nil || rec.Vessel != nil {
		t.Errorf("record = %+v, want type 24 with no fields", rec)
	}
	if rec.MMSI() != "" {
		t.Errorf("MMSI() = %q, want empty", rec.MMSI())
	}
}

func TestVesselFrom_NotAvailable(t *testing.T) {
	values := map[string]any{
		"mmsi":    "123456789",
		"lat":     nil,
		"lon":     12.5,
		"speed":   102.3,
		"course":  360.0,
		"heading": uint64(511),
	}
	v := vesselFrom(values)
	if v.HasPosition() || v.Latitude != nil || v.Longitude != nil {
		t.Error("half position kept")
	}
	if v.Speed != nil || v.Course != nil || v.Heading != nil {
		t.Errorf("not-available values kept: %+v", v)
	}

	if vesselFrom(map[string]any{"type": uint64(1)}) != nil {
		t.Error("vessel built without MMSI")
	}
}

func TestNormaliseText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"EVER  DIADEM", "EVER DIADEM"},
		{"  NEW YORK ", "NEW YORK"},
		{"", ""},
		{"A", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormaliseText(tt.input); got != tt.want {
				t.Errorf("NormaliseText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
