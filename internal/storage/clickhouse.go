package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ais_parser/internal/extractor"
)

// DefaultBatchSize is the number of sentences buffered before a batch insert.
const DefaultBatchSize = 500

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	BatchSize int    `yaml:"batch_size"`
}

// ClickHouseDB wraps a ClickHouse connection for sentence history.
// Writes are buffered and sent in batches.
type ClickHouseDB struct {
	conn      driver.Conn
	batchSize int

	mu      sync.Mutex
	pending []chRow
}

type chRow struct {
	timestamp    time.Time
	typeID       uint8
	talker       string
	sentenceType string
	channel      string
	mmsi         string
	payloadBits  uint32
	rawText      string
	fieldsJSON   string
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return newClickHouseDB(conn, cfg.BatchSize), nil
}

func newClickHouseDB(conn driver.Conn, batchSize int) *ClickHouseDB {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ClickHouseDB{conn: conn, batchSize: batchSize}
}

// Close flushes buffered sentences and closes the connection.
func (d *ClickHouseDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	flushErr := d.Flush(ctx)
	if err := d.conn.Close(); err != nil {
		return err
	}
	return flushErr
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sentences (
			timestamp       DateTime64(3),
			type_id         UInt8,
			talker          LowCardinality(String),
			sentence_type   LowCardinality(String),
			channel         LowCardinality(String),
			mmsi            String,
			payload_bits    UInt32,
			raw_text        String,
			fields_json     String,
			created_at      DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (type_id, mmsi, timestamp)
		SETTINGS index_granularity = 8192`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	// Add bloom filter index for full-text search (ignore error if already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE sentences ADD INDEX IF NOT EXISTS idx_raw_text_bloom raw_text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

func toCHRow(rec *extractor.Record) (chRow, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return chRow{}, fmt.Errorf("marshal fields: %w", err)
	}

	ts := time.Now().UTC()
	if rec.Timestamp != nil {
		ts = rec.Timestamp.UTC()
	}

	return chRow{
		timestamp:    ts,
		typeID:       uint8(rec.TypeID),
		talker:       rec.Talker,
		sentenceType: rec.SentenceType,
		channel:      rec.Channel,
		mmsi:         rec.MMSI(),
		payloadBits:  uint32(rec.PayloadBits),
		rawText:      strings.Join(rec.Raw, "\n"),
		fieldsJSON:   string(fieldsJSON),
	}, nil
}

// Write buffers a record and sends the buffer once it reaches the batch size.
func (d *ClickHouseDB) Write(ctx context.Context, rec *extractor.Record) error {
	row, err := toCHRow(rec)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.pending = append(d.pending, row)
	full := len(d.pending) >= d.batchSize
	d.mu.Unlock()

	if full {
		return d.Flush(ctx)
	}
	return nil
}

// Pending returns the number of buffered sentences.
func (d *ClickHouseDB) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush sends every buffered sentence in one batch. The buffer is cleared
// even if the send fails.
func (d *ClickHouseDB) Flush(ctx context.Context) error {
	d.mu.Lock()
	rows := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO sentences (timestamp, type_id, talker, sentence_type, channel, mmsi, payload_bits, raw_text, fields_json)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(r.timestamp, r.typeID, r.talker, r.sentenceType, r.channel,
			r.mmsi, r.payloadBits, r.rawText, r.fieldsJSON)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByType returns stored sentence counts keyed by message type.
func (d *ClickHouseDB) CountByType(ctx context.Context) (map[int]int, error) {
	rows, err := d.conn.Query(ctx, `SELECT type_id, count() FROM sentences GROUP BY type_id`)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]int)
	for rows.Next() {
		var typeID uint8
		var n uint64
		if err := rows.Scan(&typeID, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[int(typeID)] = int(n)
	}
	return out, rows.Err()
}
