package notify

import (
	"context"

	"github.com/segmentio/kafka-go"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/services/reviews/domain"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes each event keyed by app so one app's units stay ordered
type Kafka struct {
	w     kafkaWriter
	topic string
}

// NewKafka returns a synchronous writer acknowledged by the partition leader
func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultSubject
	}
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		topic: topic,
	}
}

// Notify implements domain.Notifier
func (k *Kafka) Notify(ctx context.Context, ev domain.UnitEvent) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.App),
		Value: b,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(ev.RunID)},
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePublish, "kafka write %s", k.topic)
	}
	return nil
}

// Close flushes and closes the writer
func (k *Kafka) Close() error { return k.w.Close() }
