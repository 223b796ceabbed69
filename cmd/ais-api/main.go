// Package main provides the ais-api server for archived vessel state.
//
// This is a standalone REST API server over the vessel and position tables
// that the stream pipeline writes to PostgreSQL. It lets map front ends and
// other services look up vessels without running the receiver pipeline.
//
// Usage:
//
//	ais-api [options]
//
// Options:
//
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: ais_state, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: ais, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: ais, env: POSTGRES_PASSWORD)
//	-port N             HTTP port (default: 8081)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//	-layout FILE        Layout JSON served on /types (default: built-in)
//
// API Endpoints:
//
//	GET /api/v1/health
//	GET /api/v1/vessels?limit=N
//	GET /api/v1/vessels/{mmsi}
//	GET /api/v1/vessels/{mmsi}/track?since=6h
//	GET /api/v1/types
//	GET /api/v1/types/{id}
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ais_parser/internal/api"
	"ais_parser/internal/layout"
	"ais_parser/internal/registry"
	"ais_parser/internal/storage"
)

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := flag.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := flag.String("pg-user", envOrDefault("POSTGRES_USER", "ais"), "PostgreSQL user")
	pgPassword := flag.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "ais"), "PostgreSQL password")
	pgDB := flag.String("pg-database", envOrDefault("POSTGRES_DATABASE", "ais_state"), "PostgreSQL database")

	// API server flags.
	port := flag.Int("port", 8081, "HTTP port for API server")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	layoutPath := flag.String("layout", "", "Layout JSON file (default: built-in)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry(*layoutPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load layout")
	}

	// Open PostgreSQL database.
	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error opening PostgreSQL")
	}
	defer pg.Close()

	// Parse API keys.
	var keys []string
	if *apiKeys != "" {
		keys = strings.Split(*apiKeys, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	server := api.NewServer(pg, reg, api.Config{
		Port:        *port,
		AuthEnabled: *authEnabled,
		APIKeys:     keys,
	}, api.WithLogger(log.Logger))

	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.NewDefault()
	}
	table, err := layout.Load(path)
	if err != nil {
		return nil, err
	}
	return registry.New(table)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
