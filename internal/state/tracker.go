package state

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ais_parser/internal/extractor"
)

// Tracker manages live vessel state.
type Tracker struct {
	db *sql.DB
	mu sync.RWMutex

	// In-memory vessel state cache for fast access.
	vessels map[string]*Vessel

	// Callbacks for change notifications.
	onVesselNew      func(*Vessel)
	onPositionUpdate func(*Vessel)

	now func() time.Time
}

// NewTracker creates a new state tracker with the given database path.
// If dbPath is empty or ":memory:", uses an in-memory database.
func NewTracker(dbPath string) (*Tracker, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Initialise the schema.
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	t := &Tracker{
		db:      db,
		vessels: make(map[string]*Vessel),
		now:     time.Now,
	}

	// Load existing vessel states into memory.
	if err := t.loadVessels(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return t, nil
}

// Close closes the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// OnVesselNew sets a callback for when a vessel is seen for the first time.
func (t *Tracker) OnVesselNew(fn func(*Vessel)) {
	t.onVesselNew = fn
}

// OnPositionUpdate sets a callback for when a vessel reports a new position.
func (t *Tracker) OnPositionUpdate(fn func(*Vessel)) {
	t.onPositionUpdate = fn
}

// loadVessels loads persisted vessel states into memory.
func (t *Tracker) loadVessels() error {
	rows, err := t.db.Query(`
		SELECT mmsi, name, callsign, destination, imo, ship_type, status,
		       latitude, longitude, speed, course, heading, draught,
		       last_type, first_seen, last_seen, msg_count
		FROM vessel_state
	`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var v Vessel
		var name, callsign, dest sql.NullString
		var imo, shipType, status, heading sql.NullInt64
		var lat, lon, speed, course, draught sql.NullFloat64
		var firstSeen, lastSeen int64

		err := rows.Scan(
			&v.MMSI, &name, &callsign, &dest, &imo, &shipType, &status,
			&lat, &lon, &speed, &course, &heading, &draught,
			&v.LastType, &firstSeen, &lastSeen, &v.MsgCount,
		)
		if err != nil {
			continue
		}

		v.Name = name.String
		v.Callsign = callsign.String
		v.Destination = dest.String
		v.IMO = int(imo.Int64)
		v.ShipType = intPtr(shipType)
		v.Status = intPtr(status)
		v.Heading = intPtr(heading)
		v.Latitude = floatPtr(lat)
		v.Longitude = floatPtr(lon)
		v.Speed = floatPtr(speed)
		v.Course = floatPtr(course)
		v.Draught = floatPtr(draught)
		v.FirstSeen = time.UnixMilli(firstSeen).UTC()
		v.LastSeen = time.UnixMilli(lastSeen).UTC()

		t.vessels[v.MMSI] = &v
	}

	return rows.Err()
}

// Apply merges a decoded record into the vessel state. It returns the
// updated state and whether the vessel was new. Records without a vessel
// update return nil.
func (t *Tracker) Apply(rec *extractor.Record) (*Vessel, bool) {
	if rec == nil || rec.Vessel == nil || rec.Vessel.MMSI == "" {
		return nil, false
	}
	u := rec.Vessel

	seen := t.now().UTC()
	if rec.Timestamp != nil {
		seen = rec.Timestamp.UTC()
	}

	t.mu.Lock()
	v, exists := t.vessels[u.MMSI]
	if !exists {
		v = &Vessel{MMSI: u.MMSI, FirstSeen: seen}
		t.vessels[u.MMSI] = v
	}

	moved := false
	if u.HasPosition() {
		moved = v.Latitude == nil || *v.Latitude != *u.Latitude || *v.Longitude != *u.Longitude
		v.Latitude, v.Longitude = u.Latitude, u.Longitude
	}
	if u.Speed != nil {
		v.Speed = u.Speed
	}
	if u.Course != nil {
		v.Course = u.Course
	}
	if u.Heading != nil {
		v.Heading = u.Heading
	}
	if u.Status != nil {
		v.Status = u.Status
	}

	// Update identity and voyage data.
	if u.Name != "" {
		v.Name = u.Name
	}
	if u.Callsign != "" {
		v.Callsign = u.Callsign
	}
	if u.Destination != "" {
		v.Destination = u.Destination
	}
	if u.IMO != 0 {
		v.IMO = u.IMO
	}
	if u.ShipType != nil {
		v.ShipType = u.ShipType
	}
	if u.Draught != nil {
		v.Draught = u.Draught
	}

	v.LastType = rec.TypeID
	if seen.After(v.LastSeen) {
		v.LastSeen = seen
	}
	v.MsgCount++

	// Persist to database.
	t.saveVessel(v)
	out := v.clone()
	t.mu.Unlock()

	if !exists && t.onVesselNew != nil {
		t.onVesselNew(out)
	}
	if moved && t.onPositionUpdate != nil {
		t.onPositionUpdate(out)
	}
	return out, !exists
}

// saveVessel persists a vessel state to the database.
func (t *Tracker) saveVessel(v *Vessel) {
	_, err := t.db.Exec(`
		INSERT INTO vessel_state (mmsi, name, callsign, destination, imo, ship_type, status,
		                          latitude, longitude, speed, course, heading, draught,
		                          last_type, first_seen, last_seen, msg_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mmsi) DO UPDATE SET
			name = excluded.name,
			callsign = excluded.callsign,
			destination = excluded.destination,
			imo = excluded.imo,
			ship_type = excluded.ship_type,
			status = excluded.status,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			speed = excluded.speed,
			course = excluded.course,
			heading = excluded.heading,
			draught = excluded.draught,
			last_type = excluded.last_type,
			last_seen = excluded.last_seen,
			msg_count = excluded.msg_count
	`,
		v.MMSI, v.Name, v.Callsign, v.Destination, v.IMO, nullInt(v.ShipType), nullInt(v.Status),
		nullFloat(v.Latitude), nullFloat(v.Longitude), nullFloat(v.Speed), nullFloat(v.Course),
		nullInt(v.Heading), nullFloat(v.Draught),
		v.LastType, v.FirstSeen.UnixMilli(), v.LastSeen.UnixMilli(), v.MsgCount,
	)
	// Silently ignore errors - vessel state is best-effort.
	_ = err
}

// GetVessel returns the state of one vessel, or nil if it has not been seen.
func (t *Tracker) GetVessel(_ context.Context, mmsi string) (*Vessel, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.vessels[mmsi]
	if !ok {
		return nil, nil
	}
	return v.clone(), nil
}

// ListVessels returns vessels ordered by most recently seen. A limit of 0
// or less returns every vessel.
func (t *Tracker) ListVessels(_ context.Context, limit int) ([]*Vessel, error) {
	t.mu.RLock()
	out := make([]*Vessel, 0, len(t.vessels))
	for _, v := range t.vessels {
		out = append(out, v.clone())
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].MMSI < out[j].MMSI
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of tracked vessels.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vessels)
}

// Prune forgets vessels not seen within maxAge and returns how many were removed.
func (t *Tracker) Prune(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for mmsi, v := range t.vessels {
		if v.LastSeen.Before(cutoff) {
			delete(t.vessels, mmsi)
			removed++
		}
	}
	_, _ = t.db.Exec("DELETE FROM vessel_state WHERE last_seen < ?", cutoff.UnixMilli())
	return removed
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
