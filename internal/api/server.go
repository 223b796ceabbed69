// Package api provides REST API endpoints for vessel state and the message
// layout registry.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ais_parser/internal/registry"
	"ais_parser/internal/state"
	"ais_parser/internal/storage"
)

// Default and maximum page sizes for vessel listings.
const (
	DefaultLimit = 100
	MaxLimit     = 1000

	// DefaultTrackWindow is how far back /track looks without ?since.
	DefaultTrackWindow = 24 * time.Hour
)

var mmsiPattern = regexp.MustCompile(`^[0-9]{9}$`)

// Store is read access to vessel state. It is implemented by the live
// state.Tracker and by storage.PostgresDB.
type Store interface {
	GetVessel(ctx context.Context, mmsi string) (*state.Vessel, error)
	ListVessels(ctx context.Context, limit int) ([]*state.Vessel, error)
}

// TrackStore is implemented by stores that keep position history.
type TrackStore interface {
	GetTrack(ctx context.Context, mmsi string, since time.Time) ([]storage.Position, error)
}

// Config holds configuration for the API server.
type Config struct {
	Port        int      `yaml:"port"`
	AuthEnabled bool     `yaml:"auth_enabled"`
	APIKeys     []string `yaml:"api_keys"` // List of valid API keys.
}

// Server provides REST API access to vessel state.
type Server struct {
	store       Store
	reg         *registry.Registry
	stats       func() any
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
	logger      zerolog.Logger
}

// Option configures a Server.
type Option func(s *Server)

// WithStats exposes a counter snapshot on /stats.
func WithStats(fn func() any) Option {
	return func(s *Server) {
		s.stats = fn
	}
}

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new API server.
func NewServer(store Store, reg *registry.Registry, cfg Config, opts ...Option) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	s := &Server{
		store:       store,
		reg:         reg,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full HTTP handler with standard middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())
	return r
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().
		Str("addr", srv.Addr).
		Bool("auth", s.authEnabled).
		Msg("API server starting")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		// Optional authentication.
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}

		r.Get("/vessels", s.handleListVessels)
		r.Get("/vessels/{mmsi}", s.handleGetVessel)
		r.Get("/vessels/{mmsi}/track", s.handleGetTrack)
		r.Get("/stats", s.handleStats)
		r.Get("/types", s.handleListTypes)
		r.Get("/types/{id}", s.handleGetType)
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VesselListResponse is the JSON response for vessel listings.
type VesselListResponse struct {
	Count   int             `json:"count"`
	Vessels []*state.Vessel `json:"vessels"`
}

func (s *Server) handleListVessels(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Vessel store not available")
		return
	}

	limit := DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxLimit)
	}

	vessels, err := s.store.ListVessels(r.Context(), limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("list vessels failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if vessels == nil {
		vessels = []*state.Vessel{}
	}

	writeJSON(w, http.StatusOK, VesselListResponse{Count: len(vessels), Vessels: vessels})
}

func (s *Server) handleGetVessel(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Vessel store not available")
		return
	}

	mmsi := chi.URLParam(r, "mmsi")
	if !mmsiPattern.MatchString(mmsi) {
		writeError(w, http.StatusBadRequest, "MMSI must be 9 digits")
		return
	}

	vessel, err := s.store.GetVessel(r.Context(), mmsi)
	if err != nil {
		s.logger.Warn().Err(err).Str("mmsi", mmsi).Msg("get vessel failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if vessel == nil {
		writeError(w, http.StatusNotFound, "Vessel not found")
		return
	}

	writeJSON(w, http.StatusOK, vessel)
}

// TrackResponse is the position history of one vessel.
type TrackResponse struct {
	MMSI      string             `json:"mmsi"`
	Since     time.Time          `json:"since"`
	Count     int                `json:"count"`
	Positions []storage.Position `json:"positions"`
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.store.(TrackStore)
	if !ok {
		writeError(w, http.StatusNotFound, "Track history not available")
		return
	}

	mmsi := chi.URLParam(r, "mmsi")
	if !mmsiPattern.MatchString(mmsi) {
		writeError(w, http.StatusBadRequest, "MMSI must be 9 digits")
		return
	}

	window := DefaultTrackWindow
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "since must be a positive duration such as 6h")
			return
		}
		window = d
	}
	since := time.Now().UTC().Add(-window)

	positions, err := ts.GetTrack(r.Context(), mmsi, since)
	if err != nil {
		s.logger.Warn().Err(err).Str("mmsi", mmsi).Msg("get track failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if positions == nil {
		positions = []storage.Position{}
	}

	writeJSON(w, http.StatusOK, TrackResponse{MMSI: mmsi, Since: since, Count: len(positions), Positions: positions})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "Statistics not available")
		return
	}
	writeJSON(w, http.StatusOK, s.stats())
}

// TypeSummary describes one registered message type.
type TypeSummary struct {
	Type        int    `json:"type"`
	Description string `json:"description"`
	Fields      int    `json:"fields"`
}

// FieldLayout describes one field of a message type. End is exclusive.
type FieldLayout struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Bits  int    `json:"bits"`
	Kind  string `json:"kind"`
}

// TypeLayout is the JSON response for a single message type.
type TypeLayout struct {
	TypeSummary
	Layout []FieldLayout `json:"layout"`
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]TypeSummary, 0)
	for _, id := range s.reg.Types() {
		d, err := s.reg.Decoder(id)
		if err != nil {
			continue
		}
		out = append(out, TypeSummary{Type: id, Description: d.Description, Fields: len(d.Fields())})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid type id")
		return
	}

	d, err := s.reg.Decoder(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown message type")
		return
	}

	fs := d.Fields()
	resp := TypeLayout{
		TypeSummary: TypeSummary{Type: id, Description: d.Description, Fields: len(fs)},
		Layout:      make([]FieldLayout, 0, len(fs)),
	}
	for _, f := range fs {
		resp.Layout = append(resp.Layout, FieldLayout{
			Name:  f.Name,
			Start: f.Start,
			End:   f.End,
			Bits:  f.Width(),
			Kind:  f.Kind.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
