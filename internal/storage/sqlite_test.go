package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"ais_parser/internal/ais"
	"ais_parser/internal/extractor"
	"ais_parser/internal/registry"
)

const (
	positionLine = "!ABVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*1F"
	staticPart1  = "!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C"
	staticPart2  = "!AIVDM,2,2,1,A,88888888880,2*25"
	stampedLine  = "1700000000.5 !AIVDM,1,1,,B,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*17"
)

func testRecords(t *testing.T, lines ...string) []*extractor.Record {
	t.Helper()
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sentences, err := ais.ParseMany(lines)
	if err != nil {
		t.Fatalf("ParseMany error: %v", err)
	}
	var out []*extractor.Record
	for _, s := range sentences {
		rec, err := extractor.Extract(s, reg)
		if err != nil {
			t.Fatalf("Extract error: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLite_InsertAndQuery(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	for _, rec := range testRecords(t, positionLine, staticPart1, staticPart2, stampedLine) {
		if err := db.Write(ctx, rec); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	n, err := db.Count(0)
	if err != nil || n != 3 {
		t.Fatalf("Count(0) = %d, %v, want 3", n, err)
	}

	tests := []struct {
		name   string
		params QueryParams
		want   int
	}{
		{"all", QueryParams{}, 3},
		{"by type", QueryParams{TypeID: 5}, 1},
		{"by mmsi", QueryParams{MMSI: "367678850"}, 2},
		{"by channel", QueryParams{Channel: "B"}, 1},
		{"full text", QueryParams{FullText: "ABVDM"}, 1},
		{"limit", QueryParams{Limit: 2}, 2},
		{"offset", QueryParams{Offset: 2}, 1},
		{"no match", QueryParams{MMSI: "000000000"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Query(tt.params)
			if err != nil {
				t.Fatalf("Query error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len(Query()) = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSQLite_StoredColumns(t *testing.T) {
	db := openTestSQLite(t)

	recs := testRecords(t, staticPart1, staticPart2, stampedLine)
	for _, rec := range recs {
		if _, err := db.Insert(rec); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	got, err := db.Query(QueryParams{OrderBy: "type_id", OrderDesc: true})
	if err != nil || len(got) != 2 {
		t.Fatalf("Query = %d rows, %v", len(got), err)
	}

	static := got[0]
	if static.TypeID != 5 || static.MMSI != "351759000" || static.Talker != "AI" {
		t.Errorf("static row = %+v", static)
	}
	if static.PayloadBits != 424 {
		t.Errorf("PayloadBits = %d, want 424", static.PayloadBits)
	}
	if static.RawText != staticPart1+"\n"+staticPart2 {
		t.Errorf("RawText = %q", static.RawText)
	}
	if !static.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", static.Timestamp)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(static.FieldsJSON), &decoded); err != nil {
		t.Fatalf("FieldsJSON: %v", err)
	}
	if decoded["callsign"] != "3FOF8" {
		t.Errorf("callsign = %v, want 3FOF8", decoded["callsign"])
	}

	stamped := got[1]
	if stamped.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v, want unix 1700000000", stamped.Timestamp)
	}

	byType, err := db.CountByType()
	if err != nil {
		t.Fatalf("CountByType error: %v", err)
	}
	if byType[1] != 1 || byType[5] != 1 {
		t.Errorf("CountByType() = %v", byType)
	}
}

func TestClickHouse_Buffering(t *testing.T) {
	ch := newClickHouseDB(nil, 3)
	ctx := context.Background()

	for _, rec := range testRecords(t, positionLine, stampedLine) {
		if err := ch.Write(ctx, rec); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if ch.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", ch.Pending())
	}

	empty := newClickHouseDB(nil, 0)
	if empty.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", empty.batchSize, DefaultBatchSize)
	}
	if err := empty.Flush(ctx); err != nil {
		t.Errorf("Flush() on empty buffer = %v, want nil", err)
	}
}

func TestOpen_SQLiteOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SQLite.Enabled = true
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "ais.db")

	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = db.Close() }()

	if db.CH != nil || db.PG != nil {
		t.Error("disabled backends were opened")
	}
	if len(db.Writers()) != 1 {
		t.Errorf("len(Writers()) = %d, want 1", len(db.Writers()))
	}
	if err := db.Flush(context.Background()); err != nil {
		t.Errorf("Flush() = %v", err)
	}
}
