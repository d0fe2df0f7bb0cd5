package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/simonyos/wfgen/internal/logging"
	"github.com/simonyos/wfgen/internal/pipeline"
)

var (
	// ErrConnectionFailed is returned when the NATS server cannot be reached
	ErrConnectionFailed = errors.New("failed to connect to NATS")

	// ErrNotConnected is returned when publishing on a closed bus
	ErrNotConnected = errors.New("not connected to NATS")
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL            string        `json:"url"`
	Name           string        `json:"name,omitempty"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
}

// DefaultNATSConfig returns the default configuration for url. An empty url
// means nats.DefaultURL.
func DefaultNATSConfig(url string) NATSConfig {
	if url == "" {
		url = nats.DefaultURL // "nats://localhost:4222"
	}
	return NATSConfig{
		URL:            url,
		Name:           "wfgen",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
	}
}

// Bus publishes run events to NATS and lets watchers subscribe to them
type Bus struct {
	conn *nats.Conn
	log  *slog.Logger
}

// Connect opens a NATS connection for cfg
func Connect(cfg NATSConfig, logger *slog.Logger) (*Bus, error) {
	log := logging.OrNop(logger)

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats: disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats: reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Warn("nats: error", "error", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, err)
	}
	return &Bus{conn: conn, log: log}, nil
}

// Publish sends one event
func (b *Bus) Publish(ev Event) error {
	if b.conn == nil || b.conn.IsClosed() {
		return ErrNotConnected
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.conn.Publish(Subject(ev.RunID, ev.To), data)
}

// Observe implements pipeline.Observer. Publish failures are logged and
// never stop the run.
func (b *Bus) Observe(ctx context.Context, t pipeline.Transition) {
	if err := b.Publish(FromTransition(t)); err != nil {
		b.log.WarnContext(ctx, "nats: publish failed", "run_id", t.RunID, "error", err)
	}
}

// Watch calls fn for every event of runID (all runs when runID is empty)
// until ctx is done.
func (b *Bus) Watch(ctx context.Context, runID string, fn func(Event)) error {
	if b.conn == nil || b.conn.IsClosed() {
		return ErrNotConnected
	}

	subject := SubjectPrefix + ".>"
	if runID != "" {
		subject = SubjectPrefix + "." + runID + ".*"
	}

	msgs := make(chan *nats.Msg, 64)
	sub, err := b.conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			var ev Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				b.log.Warn("nats: dropping malformed event", "subject", msg.Subject, "error", err)
				continue
			}
			fn(ev)
		}
	}
}

// Close flushes pending events and closes the connection
func (b *Bus) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.FlushTimeout(2 * time.Second)
	b.conn.Close()
	b.conn = nil
	return err
}
