package main

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"ais_parser/internal/state"
	"ais_parser/internal/storage"
)

func TestGenerateKML(t *testing.T) {
	lat, lon := 33.7302, -118.2634
	heading := 111
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	vessels := []*state.Vessel{
		{MMSI: "367678850", Latitude: &lat, Longitude: &lon, Heading: &heading, FirstSeen: seen, LastSeen: seen, MsgCount: 3},
		{MMSI: "351759000", Name: "EVER DIADEM  ", FirstSeen: seen, LastSeen: seen, MsgCount: 1},
	}
	tracks := map[string][]storage.Position{
		"367678850": {
			{Latitude: 33.7300, Longitude: -118.2630, ReportedAt: seen.Add(-time.Minute)},
			{Latitude: 33.7302, Longitude: -118.2634, ReportedAt: seen},
		},
		"351759000": {{Latitude: 1, Longitude: 2, ReportedAt: seen}},
	}

	kml := generateKML(vessels, tracks, seen)

	// One position and one track for the first vessel; the second has no
	// position and a single-point track.
	pms := kml.Document.Placemarks
	if len(pms) != 2 {
		t.Fatalf("placemarks = %d, want 2", len(pms))
	}
	if pms[0].Point == nil || pms[0].Point.Coordinates != "-118.263400,33.730200,0" {
		t.Errorf("point = %+v", pms[0].Point)
	}
	if pms[0].Name != "367678850" {
		t.Errorf("name = %q, want MMSI for an unnamed vessel", pms[0].Name)
	}
	if pms[0].Style == nil || pms[0].Style.IconStyle.Heading == nil || *pms[0].Style.IconStyle.Heading != 111 {
		t.Errorf("style = %+v", pms[0].Style)
	}
	if pms[1].LineString == nil || pms[1].LineString.Coordinates != "-118.263000,33.730000,0 -118.263400,33.730200,0" {
		t.Errorf("track = %+v", pms[1].LineString)
	}

	out, err := xml.Marshal(kml)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(out), `<kml xmlns="http://www.opengis.net/kml/2.2">`) {
		t.Errorf("missing kml root: %s", out[:80])
	}
}

func TestVesselName(t *testing.T) {
	tests := []struct {
		v    state.Vessel
		want string
	}{
		{state.Vessel{MMSI: "351759000", Name: "EVER DIADEM"}, "EVER DIADEM"},
		{state.Vessel{MMSI: "351759000", Name: "   "}, "351759000"},
		{state.Vessel{MMSI: "367678850"}, "367678850"},
	}
	for _, tt := range tests {
		if got := vesselName(&tt.v); got != tt.want {
			t.Errorf("vesselName(%+v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
