// Package state provides live vessel state tracking backed by SQLite.
package state

// schema contains the SQLite table definitions for state tracking.
// Times are stored as unix milliseconds.
const schema = `
CREATE TABLE IF NOT EXISTS vessel_state (
	mmsi        TEXT PRIMARY KEY,
	name        TEXT,
	callsign    TEXT,
	destination TEXT,
	imo         INTEGER,
	ship_type   INTEGER,
	status      INTEGER,
	latitude    REAL,
	longitude   REAL,
	speed       REAL,
	course      REAL,
	heading     INTEGER,
	draught     REAL,
	last_type   INTEGER NOT NULL DEFAULT 0,
	first_seen  INTEGER NOT NULL,
	last_seen   INTEGER NOT NULL,
	msg_count   INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_vessel_state_last_seen ON vessel_state(last_seen);
`
