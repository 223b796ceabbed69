package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"ais_parser/internal/extractor"
)

// NATSPublisher publishes each record on "<prefix>.<type id>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	enc    Encoder
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string, enc Encoder) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("ais_parser"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, enc: enc}, nil
}

// Subject returns the subject a record is published on.
func (p *NATSPublisher) Subject(rec *extractor.Record) string {
	return natsSubject(p.prefix, rec)
}

func natsSubject(prefix string, rec *extractor.Record) string {
	id := strconv.Itoa(rec.TypeID)
	if prefix == "" {
		return id
	}
	return prefix + "." + id
}

// Write publishes rec. Delivery is asynchronous; Close flushes.
func (p *NATSPublisher) Write(_ context.Context, rec *extractor.Record) error {
	data, err := p.enc.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := p.conn.Publish(natsSubject(p.prefix, rec), data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Flush waits until the server has processed every published record.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
