package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ais_parser/internal/api"
	"ais_parser/internal/config"
	"ais_parser/internal/ingest"
	"ais_parser/internal/metrics"
	"ais_parser/internal/publish"
	"ais_parser/internal/source"
	"ais_parser/internal/state"
	"ais_parser/internal/storage"
)

// flushInterval bounds how long buffered ClickHouse rows wait for a batch.
const flushInterval = 5 * time.Second

func runStream(args []string) {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	cfgPath := fs.String("config", "ais.yaml", "YAML config file")
	_ = fs.Parse(args)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("failed to load config")
	}
	level, _ := cfg.Level()
	log.Logger = log.Logger.Level(level)

	reg, err := loadRegistry(cfg.Layout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load layout")
	}

	tracker, err := state.NewTracker(cfg.StateDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open vessel tracker")
	}
	defer tracker.Close()
	tracker.OnVesselNew(func(v *state.Vessel) {
		log.Debug().Str("mmsi", v.MMSI).Int("type", v.LastType).Msg("new vessel")
	})

	eg, ctx := errgroup.WithContext(context.Background())
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer db.Close()

	var sinks []ingest.Sink
	for _, w := range db.Writers() {
		sinks = append(sinks, w)
	}

	if cfg.NATS.Enabled {
		enc, err := publish.NewEncoder(cfg.NATS.Format)
		if err != nil {
			log.Fatal().Err(err).Msg("nats")
		}
		pub, err := publish.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, enc)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("failed to connect to NATS")
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		log.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("publishing to NATS")
	}

	if cfg.MQTT.Enabled {
		enc, err := publish.NewEncoder(cfg.MQTT.Format)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt")
		}
		pub, err := publish.NewMQTTPublisher(cfg.MQTT.MQTTConfig, enc)
		if err != nil {
			log.Fatal().Err(err).Str("broker", cfg.MQTT.Broker).Msg("failed to connect to MQTT broker")
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		log.Info().Str("broker", cfg.MQTT.Broker).Str("topic", cfg.MQTT.Topic).Msg("publishing to MQTT")
	}

	var sources []source.Source
	for _, sc := range cfg.Sources {
		src, err := source.New(sc, source.WithLogger(log.Logger))
		if err != nil {
			log.Fatal().Err(err).Str("address", sc.Address).Msg("failed to create source")
		}
		sources = append(sources, src)
	}

	pipeline := ingest.New(reg, sources,
		ingest.WithLogger(log.Logger),
		ingest.WithSinks(sinks...),
		ingest.WithTracker(tracker),
		ingest.WithChecksum(cfg.VerifyChecksum),
	)

	writeAPI, closeInflux := metrics.NewWriteAPI(cfg.InfluxDB)
	defer closeInflux()
	reporter := metrics.NewReporter(writeAPI, cfg.InfluxDB.Interval,
		func() map[string]interface{} { return pipeline.Stats().Fields() },
		metrics.WithLogger(log.Logger),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	eg.Go(func() error {
		select {
		case <-sigChan:
			log.Info().Msg("shutting down")
		case <-runCtx.Done():
		}
		cancel()
		return nil
	})

	// The pipeline ends on its own once every file source is exhausted.
	eg.Go(func() error {
		defer cancel()
		return pipeline.Run(runCtx)
	})

	eg.Go(func() error {
		return reporter.Run(runCtx)
	})

	eg.Go(func() error {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-ticker.C:
				if err := db.Flush(runCtx); err != nil {
					log.Warn().Err(err).Msg("storage flush failed")
				}
			}
		}
	})

	if cfg.PruneAfter > 0 {
		eg.Go(func() error {
			ticker := time.NewTicker(cfg.PruneAfter / 2)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
					if n := tracker.Prune(cfg.PruneAfter); n > 0 {
						log.Info().Int("removed", n).Int("tracked", tracker.Count()).Msg("pruned stale vessels")
					}
				}
			}
		})
	}

	if cfg.API.Enabled {
		srv := api.NewServer(tracker, reg, cfg.API.Config,
			api.WithStats(func() any { return pipeline.Stats() }),
			api.WithLogger(log.Logger),
		)
		eg.Go(func() error {
			return srv.Run(runCtx)
		})
	}

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("exited program")
	}

	st := pipeline.Stats()
	log.Info().
		Int("lines", st.Lines).
		Int("sentences", st.Sentences).
		Int("records", st.Records).
		Int("checksum_failures", st.ChecksumFailures).
		Int("decode_errors", st.DecodeErrors).
		Int("sink_errors", st.SinkErrors).
		Int("vessels", tracker.Count()).
		Msg("stream finished")
}
