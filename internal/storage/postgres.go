package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ais_parser/internal/extractor"
	"ais_parser/internal/state"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ConnString returns the pgx connection URL.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// PostgresDB wraps a PostgreSQL connection pool for vessel state and
// position history.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Pool returns the underlying connection pool.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Latest known state per vessel.
	CREATE TABLE IF NOT EXISTS vessels (
		mmsi            TEXT PRIMARY KEY,
		name            TEXT,
		callsign        TEXT,
		destination     TEXT,
		imo             INTEGER,
		ship_type       INTEGER,
		status          INTEGER,
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		speed           DOUBLE PRECISION,
		course          DOUBLE PRECISION,
		heading         INTEGER,
		draught         DOUBLE PRECISION,
		last_type       INTEGER NOT NULL DEFAULT 0,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		msg_count       INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_vessels_last_seen ON vessels(last_seen);
	CREATE INDEX IF NOT EXISTS idx_vessels_name ON vessels(name);

	-- Position reports, one row per sentence carrying a position.
	CREATE TABLE IF NOT EXISTS positions (
		id              BIGSERIAL PRIMARY KEY,
		mmsi            TEXT NOT NULL,
		type_id         INTEGER NOT NULL,
		latitude        DOUBLE PRECISION NOT NULL,
		longitude       DOUBLE PRECISION NOT NULL,
		speed           DOUBLE PRECISION,
		course          DOUBLE PRECISION,
		heading         INTEGER,
		reported_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_positions_mmsi_time ON positions(mmsi, reported_at);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Write upserts the vessel carried by rec and records its position.
// Records without an MMSI are ignored.
func (d *PostgresDB) Write(ctx context.Context, rec *extractor.Record) error {
	u := rec.Vessel
	if u == nil {
		return nil
	}

	seen := time.Now().UTC()
	if rec.Timestamp != nil {
		seen = rec.Timestamp.UTC()
	}

	var imo *int
	if u.IMO != 0 {
		imo = &u.IMO
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO vessels (mmsi, name, callsign, destination, imo, ship_type, status,
		                     latitude, longitude, speed, course, heading, draught,
		                     last_type, first_seen, last_seen)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7,
		        $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (mmsi) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, vessels.name),
			callsign = COALESCE(EXCLUDED.callsign, vessels.callsign),
			destination = COALESCE(EXCLUDED.destination, vessels.destination),
			imo = COALESCE(EXCLUDED.imo, vessels.imo),
			ship_type = COALESCE(EXCLUDED.ship_type, vessels.ship_type),
			status = COALESCE(EXCLUDED.status, vessels.status),
			latitude = COALESCE(EXCLUDED.latitude, vessels.latitude),
			longitude = COALESCE(EXCLUDED.longitude, vessels.longitude),
			speed = COALESCE(EXCLUDED.speed, vessels.speed),
			course = COALESCE(EXCLUDED.course, vessels.course),
			heading = COALESCE(EXCLUDED.heading, vessels.heading),
			draught = COALESCE(EXCLUDED.draught, vessels.draught),
			last_type = EXCLUDED.last_type,
			last_seen = GREATEST(EXCLUDED.last_seen, vessels.last_seen),
			msg_count = vessels.msg_count + 1
	`, u.MMSI, u.Name, u.Callsign, u.Destination, imo, u.ShipType, u.Status,
		u.Latitude, u.Longitude, u.Speed, u.Course, u.Heading, u.Draught,
		rec.TypeID, seen)
	if err != nil {
		return fmt.Errorf("upsert vessel: %w", err)
	}

	if !u.HasPosition() {
		return nil
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO positions (mmsi, type_id, latitude, longitude, speed, course, heading, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.MMSI, rec.TypeID, *u.Latitude, *u.Longitude, u.Speed, u.Course, u.Heading, seen)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

const vesselColumns = `mmsi, name, callsign, destination, imo, ship_type, status,
	latitude, longitude, speed, course, heading, draught,
	last_type, first_seen, last_seen, msg_count`

func scanVessel(row pgx.Row) (*state.Vessel, error) {
	var v state.Vessel
	var name, callsign, dest *string
	var imo *int

	err := row.Scan(&v.MMSI, &name, &callsign, &dest, &imo, &v.ShipType, &v.Status,
		&v.Latitude, &v.Longitude, &v.Speed, &v.Course, &v.Heading, &v.Draught,
		&v.LastType, &v.FirstSeen, &v.LastSeen, &v.MsgCount)
	if err != nil {
		return nil, err
	}

	if name != nil {
		v.Name = *name
	}
	if callsign != nil {
		v.Callsign = *callsign
	}
	if dest != nil {
		v.Destination = *dest
	}
	if imo != nil {
		v.IMO = *imo
	}
	return &v, nil
}

// GetVessel retrieves a vessel by MMSI, or nil if it is unknown.
func (d *PostgresDB) GetVessel(ctx context.Context, mmsi string) (*state.Vessel, error) {
	v, err := scanVessel(d.pool.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM vessels WHERE mmsi = $1`, mmsi))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListVessels returns vessels ordered by most recently seen. A limit of 0
// or less returns every vessel.
func (d *PostgresDB) ListVessels(ctx context.Context, limit int) ([]*state.Vessel, error) {
	query := `SELECT ` + vesselColumns + ` FROM vessels ORDER BY last_seen DESC, mmsi`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*state.Vessel
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Position is one archived position report.
type Position struct {
	MMSI       string    `json:"mmsi"`
	TypeID     int       `json:"type"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      *float64  `json:"speed,omitempty"`
	Course     *float64  `json:"course,omitempty"`
	Heading    *int      `json:"heading,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// GetTrack returns the positions reported by a vessel since the given time,
// oldest first.
func (d *PostgresDB) GetTrack(ctx context.Context, mmsi string, since time.Time) ([]Position, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT mmsi, type_id, latitude, longitude, speed, course, heading, reported_at
		FROM positions
		WHERE mmsi = $1 AND reported_at >= $2
		ORDER BY reported_at
	`, mmsi, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.MMSI, &p.TypeID, &p.Latitude, &p.Longitude,
			&p.Speed, &p.Course, &p.Heading, &p.ReportedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
