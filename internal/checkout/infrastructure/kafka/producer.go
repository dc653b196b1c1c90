package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the outbox dispatcher's producer. RequireAll acks because an
// outbox row is marked sent as soon as the write returns; a weaker ack
// level could lose events the relay considers delivered.
type Writer struct {
	*kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.Writer.WriteMessages(ctx, msgs...)
}
