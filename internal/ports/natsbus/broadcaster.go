// Package natsbus publishes match events on NATS for lobby feeds, spectator
// services and replay pipelines.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"bigtwo/internal/config"
	"bigtwo/internal/ports"
)

// subjectPrefix roots every match event subject:
// bigtwo.match.<match_id>.<kind>.
const subjectPrefix = "bigtwo.match"

// Broadcaster implements ports.Broadcaster on a NATS connection.
type Broadcaster struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// Connect dials NATS with the configured reconnect policy.
func Connect(cfg config.NATSConfig, logger zerolog.Logger) (*Broadcaster, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Broadcaster{conn: conn, logger: logger}, nil
}

// Publish sends the event on its match/kind subject.
func (b *Broadcaster) Publish(_ context.Context, msg ports.EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, msg.MatchID, msg.Kind)
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and drops the connection.
func (b *Broadcaster) Close() {
	if err := b.conn.Flush(); err != nil {
		b.logger.Warn().Err(err).Msg("nats flush on close failed")
	}
	b.conn.Close()
}
