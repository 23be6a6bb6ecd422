// Package events publishes document status changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"docflow/internal/model"
)

// StatusChanged is emitted after a document moved between statuses.
type StatusChanged struct {
	DocumentID string       `json:"documentId"`
	From       model.Status `json:"from"`
	To         model.Status `json:"to"`
	ActorID    string       `json:"actorId"`
	At         time.Time    `json:"at"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev StatusChanged) error
	Close()
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishStatusChanged(context.Context, StatusChanged) error { return nil }
func (Noop) Close()                                                   {}

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func NewNATS(url, subject string, opts Options, logger *slog.Logger) (*NATSPublisher, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docflow"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", fmt.Sprint(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// Subject is where events for status to are published: the configured
// prefix followed by the target status.
func Subject(prefix string, to model.Status) string {
	return prefix + "." + string(to)
}

func (p *NATSPublisher) PublishStatusChanged(ctx context.Context, ev StatusChanged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.subject, ev.To), b); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains pending publishes before closing the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats_drain_failed", "error", err.Error())
		p.conn.Close()
	}
}
