package storage

import (
	"context"
	"errors"
	"fmt"

	"ais_parser/internal/extractor"
)

// Config holds connection settings for each backend. A backend is opened
// only when enabled.
type Config struct {
	SQLite struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"sqlite"`
	ClickHouse struct {
		Enabled          bool `yaml:"enabled"`
		ClickHouseConfig `yaml:",inline"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Enabled        bool `yaml:"enabled"`
		PostgresConfig `yaml:",inline"`
	} `yaml:"postgres"`
}

// DefaultConfig returns a configuration with default local development
// settings. Every backend starts disabled.
func DefaultConfig() Config {
	var cfg Config
	cfg.SQLite.Path = "ais.db"
	cfg.ClickHouse.ClickHouseConfig = ClickHouseConfig{
		Host:      "localhost",
		Port:      9000,
		Database:  "ais",
		User:      "default",
		BatchSize: DefaultBatchSize,
	}
	cfg.Postgres.PostgresConfig = PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "ais_state",
		User:     "ais",
		Password: "ais",
	}
	return cfg
}

// DB wraps the configured storage backends.
type DB struct {
	SQLite *SQLiteDB     // Local sentence archive.
	CH     *ClickHouseDB // ClickHouse for sentence history and analytics.
	PG     *PostgresDB   // PostgreSQL for vessel state and positions.
}

// Open opens every enabled backend and creates its schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d := &DB{}

	if cfg.SQLite.Enabled {
		db, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		d.SQLite = db
	}

	if cfg.ClickHouse.Enabled {
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse.ClickHouseConfig)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		d.CH = ch
	}

	if cfg.Postgres.Enabled {
		pg, err := OpenPostgres(ctx, cfg.Postgres.PostgresConfig)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		d.PG = pg
	}

	if err := d.CreateSchemas(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Close closes every open backend.
func (d *DB) Close() error {
	var errs []error
	if d.SQLite != nil {
		if err := d.SQLite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite: %w", err))
		}
	}
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	return errors.Join(errs...)
}

// CreateSchemas creates the schemas in the server databases. The SQLite
// schema is created on open.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if d.CH != nil {
		if err := d.CH.CreateSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	if d.PG != nil {
		if err := d.PG.CreateSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

// Writer receives decoded records.
type Writer interface {
	Write(ctx context.Context, rec *extractor.Record) error
}

// Writers returns the open backends as record writers.
func (d *DB) Writers() []Writer {
	var out []Writer
	if d.SQLite != nil {
		out = append(out, d.SQLite)
	}
	if d.CH != nil {
		out = append(out, d.CH)
	}
	if d.PG != nil {
		out = append(out, d.PG)
	}
	return out
}

// Flush sends any buffered ClickHouse rows.
func (d *DB) Flush(ctx context.Context) error {
	if d.CH == nil {
		return nil
	}
	return d.CH.Flush(ctx)
}
