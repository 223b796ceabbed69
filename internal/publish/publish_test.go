package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"

	"ais_parser/internal/extractor"
)

func testRecord() *extractor.Record {
	lat, lon := 33.7302, -118.2634
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &extractor.Record{
		TypeID:       1,
		Talker:       "AB",
		SentenceType: "VDM",
		Channel:      "A",
		Timestamp:    &ts,
		PayloadBits:  168,
		Raw:          []string{"!ABVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*1F"},
		Fields:       map[string]any{"type": uint64(1), "mmsi": "367678850"},
		Vessel:       &extractor.VesselUpdate{MMSI: "367678850", Latitude: &lat, Longitude: &lon},
	}
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format      string
		contentType string
		wantErr     bool
	}{
		{"", "application/json", false},
		{"json", "application/json", false},
		{"cbor", "application/cbor", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("NewEncoder(%q) error = %v, want ErrUnknownFormat", tt.format, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEncoder(%q) error: %v", tt.format, err)
			}
			if enc.ContentType() != tt.contentType {
				t.Errorf("ContentType() = %q, want %q", enc.ContentType(), tt.contentType)
			}
		})
	}
}

func TestEncoders_CarryRecord(t *testing.T) {
	rec := testRecord()

	j, _ := NewEncoder("json")
	data, err := j.Encode(rec)
	if err != nil {
		t.Fatalf("json Encode error: %v", err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("json Unmarshal error: %v", err)
	}
	if fromJSON["talker"] != "AB" || fromJSON["type"] != float64(1) {
		t.Errorf("json record = %v", fromJSON)
	}

	c, _ := NewEncoder("cbor")
	data, err = c.Encode(rec)
	if err != nil {
		t.Fatalf("cbor Encode error: %v", err)
	}
	var fromCBOR map[string]any
	if err := cbor.Unmarshal(data, &fromCBOR); err != nil {
		t.Fatalf("cbor Unmarshal error: %v", err)
	}
	if fromCBOR["talker"] != "AB" || fromCBOR["channel"] != "A" {
		t.Errorf("cbor record = %v", fromCBOR)
	}
	if fromCBOR["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Errorf("cbor timestamp = %v, want RFC 3339 text", fromCBOR["timestamp"])
	}
}

func TestSubjects(t *testing.T) {
	rec := testRecord()
	if got := natsSubject("ais", rec); got != "ais.1" {
		t.Errorf("natsSubject() = %q, want %q", got, "ais.1")
	}
	if got := natsSubject("", rec); got != "1" {
		t.Errorf("natsSubject(no prefix) = %q, want %q", got, "1")
	}
	if got := mqttTopic("ais/vessels", "367678850"); got != "ais/vessels/367678850" {
		t.Errorf("mqttTopic() = %q", got)
	}

	tests := []struct {
		cfg  MQTTConfig
		want string
	}{
		{MQTTConfig{Broker: "localhost:1883"}, "tcp://localhost:1883"},
		{MQTTConfig{Broker: "localhost:8883", TLS: true}, "ssl://localhost:8883"},
		{MQTTConfig{Broker: "ws://broker:9001"}, "ws://broker:9001"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.cfg); got != tt.want {
			t.Errorf("brokerURL(%q) = %q, want %q", tt.cfg.Broker, got, tt.want)
		}
	}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.Wait() }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	sent         []published
	err          error
	hang         bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	tok := &fakeToken{done: make(chan struct{}), err: c.err}
	if !c.hang {
		close(tok.done)
	}
	return tok
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_Write(t *testing.T) {
	enc, _ := NewEncoder("json")
	fc := &fakeClient{}
	p := newMQTTPublisher(fc, "ais", 1, enc)
	ctx := context.Background()

	if err := p.Write(ctx, testRecord()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := p.Write(ctx, &extractor.Record{TypeID: 24}); err != nil {
		t.Fatalf("Write(no mmsi) error: %v", err)
	}

	if len(fc.sent) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.sent))
	}
	if fc.sent[0].topic != "ais/367678850" || fc.sent[0].qos != 1 {
		t.Errorf("published = %+v", fc.sent[0])
	}

	_ = p.Close()
	if !fc.disconnected {
		t.Error("Close() did not disconnect")
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	enc, _ := NewEncoder("json")
	brokerErr := errors.New("not authorized")

	p := newMQTTPublisher(&fakeClient{err: brokerErr}, "ais", 0, enc)
	if err := p.Write(context.Background(), testRecord()); !errors.Is(err, brokerErr) {
		t.Errorf("Write() error = %v, want %v", err, brokerErr)
	}

	p = newMQTTPublisher(&fakeClient{hang: true}, "ais", 0, enc)
	p.timeout = 10 * time.Millisecond
	if err := p.Write(context.Background(), testRecord()); !errors.Is(err, ErrPublishTimeout) {
		t.Errorf("Write() error = %v, want ErrPublishTimeout", err)
	}

	p.timeout = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Write(ctx, testRecord()); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}
