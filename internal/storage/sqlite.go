// Package storage provides persistent storage for decoded AIS sentences and
// vessel state.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ais_parser/internal/extractor"
)

// Sentence represents an archived sentence with its decoded fields.
type Sentence struct {
	ID           int64
	Timestamp    time.Time // Zero when the source line carried no timestamp.
	TypeID       int
	Talker       string
	SentenceType string
	Channel      string
	MMSI         string
	PayloadBits  int
	RawText      string // Fragment texts joined by newlines.
	FieldsJSON   string
}

// SQLiteDB wraps a SQLite database used as a local sentence archive.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite archive at the given path.
// An empty path opens an in-memory database.
func OpenSQLite(path string) (*SQLiteDB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sentences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	type_id INTEGER NOT NULL,
	talker TEXT NOT NULL,
	sentence_type TEXT NOT NULL,
	channel TEXT,
	mmsi TEXT,
	payload_bits INTEGER NOT NULL,
	raw_text TEXT NOT NULL,
	fields_json TEXT NOT NULL,
	created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sentences_type ON sentences(type_id);
CREATE INDEX IF NOT EXISTS idx_sentences_mmsi ON sentences(mmsi);
CREATE INDEX IF NOT EXISTS idx_sentences_timestamp ON sentences(timestamp);

-- FTS5 virtual table for full-text search on raw sentence text.
CREATE VIRTUAL TABLE IF NOT EXISTS sentences_fts USING fts5(
	raw_text,
	content='sentences',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS sentences_ai AFTER INSERT ON sentences BEGIN
	INSERT INTO sentences_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
END;

CREATE TRIGGER IF NOT EXISTS sentences_ad AFTER DELETE ON sentences BEGIN
	INSERT INTO sentences_fts(sentences_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
END;
`

// Insert stores a decoded record and returns its row id.
func (d *SQLiteDB) Insert(rec *extractor.Record) (int64, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}

	var ts sql.NullString
	if rec.Timestamp != nil {
		ts = sql.NullString{String: rec.Timestamp.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	result, err := d.db.Exec(`
		INSERT INTO sentences (timestamp, type_id, talker, sentence_type, channel, mmsi, payload_bits, raw_text, fields_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts, rec.TypeID, rec.Talker, rec.SentenceType, rec.Channel, rec.MMSI(), rec.PayloadBits,
		strings.Join(rec.Raw, "\n"), string(fieldsJSON))
	if err != nil {
		return 0, fmt.Errorf("insert sentence: %w", err)
	}

	return result.LastInsertId()
}

// Write implements the pipeline sink interface.
func (d *SQLiteDB) Write(_ context.Context, rec *extractor.Record) error {
	_, err := d.Insert(rec)
	return err
}

// QueryParams contains filtering options for querying archived sentences.
type QueryParams struct {
	ID        int64  // Filter by specific row ID.
	TypeID    int    // Filter by message type (0 matches all).
	MMSI      string // Filter by MMSI (exact match).
	Channel   string // Filter by radio channel (exact match).
	FullText  string // FTS5 full-text search on raw_text.
	Limit     int    // Max results (default 100).
	Offset    int
	OrderBy   string // Sort field (timestamp, type_id, mmsi).
	OrderDesc bool
}

// Query retrieves sentences matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]Sentence, error) {
	var conditions []string
	var args []any

	if p.ID != 0 {
		conditions = append(conditions, "s.id = ?")
		args = append(args, p.ID)
	}
	if p.TypeID != 0 {
		conditions = append(conditions, "s.type_id = ?")
		args = append(args, p.TypeID)
	}
	if p.MMSI != "" {
		conditions = append(conditions, "s.mmsi = ?")
		args = append(args, p.MMSI)
	}
	if p.Channel != "" {
		conditions = append(conditions, "s.channel = ?")
		args = append(args, p.Channel)
	}

	query := `SELECT s.id, s.timestamp, s.type_id, s.talker, s.sentence_type, s.channel,
			s.mmsi, s.payload_bits, s.raw_text, s.fields_json
			FROM sentences s`
	if p.FullText != "" {
		query += ` JOIN sentences_fts fts ON s.id = fts.rowid`
		conditions = append([]string{"sentences_fts MATCH ?"}, conditions...)
		args = append([]any{p.FullText}, args...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderField := "id"
	switch p.OrderBy {
	case "timestamp", "type_id", "mmsi":
		orderField = p.OrderBy
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY s.%s %s", orderField, direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Sentence
	for rows.Next() {
		var s Sentence
		var ts, channel, mmsi sql.NullString

		err := rows.Scan(&s.ID, &ts, &s.TypeID, &s.Talker, &s.SentenceType, &channel,
			&mmsi, &s.PayloadBits, &s.RawText, &s.FieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if ts.Valid {
			s.Timestamp, _ = time.Parse(time.RFC3339Nano, ts.String)
		}
		s.Channel = channel.String
		s.MMSI = mmsi.String

		out = append(out, s)
	}

	return out, rows.Err()
}

// Count returns the number of archived sentences, optionally for one type.
func (d *SQLiteDB) Count(typeID int) (int, error) {
	query := "SELECT COUNT(*) FROM sentences"
	var args []any
	if typeID != 0 {
		query += " WHERE type_id = ?"
		args = append(args, typeID)
	}

	var n int
	if err := d.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sentences: %w", err)
	}
	return n, nil
}

// CountByType returns archived sentence counts keyed by message type.
func (d *SQLiteDB) CountByType() (map[int]int, error) {
	rows, err := d.db.Query("SELECT type_id, COUNT(*) FROM sentences GROUP BY type_id")
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]int)
	for rows.Next() {
		var typeID, n int
		if err := rows.Scan(&typeID, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[typeID] = n
	}
	return out, rows.Err()
}
