// Package mqtt publishes feature records to an MQTT broker.
//
// Each recording produces two messages under <prefix>/<run id>: "meta"
// carries the store.Metadata document and "records" the record array in
// the same layout the JSON sink writes.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cwbudde/algo-absence/eeg/store"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPrefix is the topic prefix used when Config.Prefix is empty.
const DefaultPrefix = "absence/features"

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timeout")

// Config configures the broker connection.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// Sink publishes recordings.
type Sink struct {
	client  publisher
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

var newClient = func(o *paho.ClientOptions) publisherConnector {
	return paho.NewClient(o)
}

type publisherConnector interface {
	publisher
	Connect() paho.Token
}

// Dial connects to cfg.Broker.
func Dial(cfg Config) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: broker required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt: invalid qos %d", cfg.QoS)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("absfeat-%d", time.Now().Unix())
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := newClient(opts)
	if err := wait(c.Connect(), cfg.Timeout); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, err)
	}
	return newSink(c, cfg), nil
}

func newSink(c publisher, cfg Config) *Sink {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sink{client: c, prefix: prefix, qos: cfg.QoS, retain: cfg.Retain, timeout: timeout}
}

// Topic returns the topic for part ("meta" or "records") of rec.
func (s *Sink) Topic(rec *store.Recording, part string) string {
	return s.prefix + "/" + rec.RunID.String() + "/" + part
}

func (s *Sink) Write(ctx context.Context, rec *store.Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta, err := json.Marshal(store.NewMetadata(rec))
	if err != nil {
		return fmt.Errorf("mqtt: encode metadata: %w", err)
	}
	records, err := json.Marshal(rec.Records)
	if err != nil {
		return fmt.Errorf("mqtt: encode records: %w", err)
	}

	for _, m := range []struct {
		part    string
		payload []byte
	}{{"meta", meta}, {"records", records}} {
		if err := ctx.Err(); err != nil {
			return err
		}
		topic := s.Topic(rec, m.part)
		if err := wait(s.client.Publish(topic, s.qos, s.retain, m.payload), s.timeout); err != nil {
			return fmt.Errorf("mqtt: publish %s: %w", topic, err)
		}
	}
	return nil
}

// Close disconnects, waiting up to 250 ms for in-flight messages.
func (s *Sink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
}

func wait(t paho.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return t.Error()
}
