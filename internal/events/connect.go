package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
)

// Connect dials NATS, retrying with exponential backoff until maxWait has
// elapsed or ctx is done.
func Connect(ctx context.Context, url, name string, maxWait time.Duration, logger *slog.Logger) (*nats.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait

	var conn *nats.Conn
	op := func() error {
		c, err := nats.Connect(url,
			nats.Name(name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("nats disconnected", "error", err)
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("nats reconnected", "url", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("nats not reachable, retrying", "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}
