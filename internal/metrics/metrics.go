// Package metrics reports pipeline counters to InfluxDB.
package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

// Measurement is the InfluxDB measurement the reporter writes.
const Measurement = "ais.pipeline"

// Config holds InfluxDB settings. An empty Host disables reporting.
type Config struct {
	Host         string        `yaml:"host"`
	Token        string        `yaml:"token"`
	Organization string        `yaml:"organization"`
	Bucket       string        `yaml:"bucket"`
	Interval     time.Duration `yaml:"interval"`
}

// NewWriteAPI returns an InfluxDB write API for cfg, or a MockWriteAPI when
// no host is configured. The returned func releases the client.
func NewWriteAPI(cfg Config) (api.WriteAPI, func()) {
	if cfg.Host == "" {
		return &MockWriteAPI{}, func() {}
	}
	client := influxdb2.NewClient(cfg.Host, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Organization, cfg.Bucket)
	return writeAPI, func() {
		writeAPI.Flush()
		client.Close()
	}
}

// Reporter periodically writes a counter snapshot as one point.
type Reporter struct {
	writeAPI api.WriteAPI
	interval time.Duration
	snapshot func() map[string]interface{}
	tags     map[string]string
	logger   zerolog.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(r *Reporter)

// WithTags adds tags to every point.
func WithTags(tags map[string]string) ReporterOption {
	return func(r *Reporter) {
		for k, v := range tags {
			r.tags[k] = v
		}
	}
}

// WithLogger sets the reporter logger.
func WithLogger(logger zerolog.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// NewReporter creates a reporter that writes snapshot() every interval.
// A non-positive interval defaults to ten seconds.
func NewReporter(writeAPI api.WriteAPI, interval time.Duration, snapshot func() map[string]interface{}, opts ...ReporterOption) *Reporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	r := &Reporter{
		writeAPI: writeAPI,
		interval: interval,
		snapshot: snapshot,
		tags:     map[string]string{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report writes one point now.
func (r *Reporter) Report(now time.Time) {
	r.writeAPI.WritePoint(influxdb2.NewPoint(Measurement, r.tags, r.snapshot(), now))
}

// Run reports every interval until ctx is done, then writes a final point.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug().Dur("interval", r.interval).Msg("metrics reporter started")
	for {
		select {
		case <-ctx.Done():
			r.Report(time.Now())
			r.writeAPI.Flush()
			return nil
		case now := <-ticker.C:
			r.Report(now)
		}
	}
}
