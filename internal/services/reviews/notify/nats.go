package notify

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATS publishes each event as JSON on one subject
type NATS struct {
	conn    natsConn
	subject string
}

// DialNATS connects with reconnects enabled
func DialNATS(ctx context.Context, c Config, log logger.Logger) (*NATS, error) {
	l := logger.Named(log, "nats")
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	opts := []nats.Option{
		nats.Name("playreviews"),
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			l.Info().Msg("nats reconnected")
		}),
	}
	if c.NATSToken != "" {
		opts = append(opts, nats.Token(c.NATSToken))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nc, err := nats.Connect(c.NATSURL, opts...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePublish, "nats connect")
	}
	subject := c.NATSSubject
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: nc, subject: subject}, nil
}

// Notify implements domain.Notifier. It waits for the server to
// acknowledge the flush so a failed publish surfaces here
func (n *NATS) Notify(ctx context.Context, ev domain.UnitEvent) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, b); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePublish, "nats publish %s", n.subject)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePublish, "nats flush %s", n.subject)
	}
	return nil
}

// Close drains pending messages
func (n *NATS) Close() error { return n.conn.Drain() }
