// Package notify publishes unit events to NATS and Kafka
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"playreviews/internal/platform/config"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

// DefaultSubject is used for both the NATS subject and the Kafka topic
const DefaultSubject = "playreviews.units"

// Config selects the transports; a transport with no address is off
type Config struct {
	NATSURL     string
	NATSToken   string
	NATSSubject string

	KafkaBrokers []string
	KafkaTopic   string

	ConnectTimeout time.Duration
}

// FromConfig reads SERVICE_NATS_* and SERVICE_KAFKA_*
func FromConfig(cfg config.Conf) Config {
	n := cfg.Prefix("SERVICE_NATS_")
	k := cfg.Prefix("SERVICE_KAFKA_")
	return Config{
		NATSURL:        n.MayString("URL", ""),
		NATSToken:      n.MayString("TOKEN", ""),
		NATSSubject:    n.MayString("SUBJECT", DefaultSubject),
		KafkaBrokers:   k.MayCSV("BROKERS", nil),
		KafkaTopic:     k.MayString("TOPIC", DefaultSubject),
		ConnectTimeout: n.MayDuration("CONNECT_TIMEOUT", 10*time.Second),
	}
}

// Open connects every configured transport. It returns nil, nil when none is
func Open(ctx context.Context, c Config, log logger.Logger) (domain.Notifier, error) {
	var out Multi
	if c.NATSURL != "" {
		n, err := DialNATS(ctx, c, log)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(c.KafkaBrokers) > 0 {
		out = append(out, NewKafka(c.KafkaBrokers, c.KafkaTopic))
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}

// Multi fans an event out to several notifiers
type Multi []domain.Notifier

// Notify implements domain.Notifier; every notifier is tried
func (m Multi) Notify(ctx context.Context, ev domain.UnitEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements domain.Notifier
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(ev domain.UnitEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePublish, "encode unit event")
	}
	return b, nil
}
