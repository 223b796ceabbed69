package publish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ais_parser/internal/extractor"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // host:port, or a full tcp:// / ssl:// URL.
	TLS      bool   `yaml:"tls"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// client is the part of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes each record on "<topic>/<mmsi>". Records that
// carry no MMSI are not published.
type MQTTPublisher struct {
	client  client
	topic   string
	qos     byte
	enc     Encoder
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig, enc Encoder) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ais_parser"
	}
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt: %w", token.Error())
	}
	return newMQTTPublisher(c, cfg.Topic, cfg.QoS, enc), nil
}

func newMQTTPublisher(c client, topic string, qos byte, enc Encoder) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic, qos: qos, enc: enc, timeout: 5 * time.Second}
}

func brokerURL(cfg MQTTConfig) string {
	if strings.Contains(cfg.Broker, "://") {
		return cfg.Broker
	}
	if cfg.TLS {
		return "ssl://" + cfg.Broker
	}
	return "tcp://" + cfg.Broker
}

func mqttTopic(prefix, mmsi string) string {
	if prefix == "" {
		return mmsi
	}
	return prefix + "/" + mmsi
}

// Write publishes rec and waits for the broker to acknowledge it.
func (p *MQTTPublisher) Write(ctx context.Context, rec *extractor.Record) error {
	mmsi := rec.MMSI()
	if mmsi == "" {
		return nil
	}
	data, err := p.enc.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	token := p.client.Publish(mqttTopic(p.topic, mmsi), p.qos, false, data)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
