package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	checkout "github.com/yourbarrio/checkout-service/internal/checkout/domain"
	"github.com/yourbarrio/checkout-service/internal/notification/application"
	"github.com/yourbarrio/checkout-service/pkg/idempotency"
	"github.com/yourbarrio/checkout-service/pkg/tracing"
)

// Consumer reads OrderPlaced events and turns them into vendor
// notifications. Redis markers keyed by topic/partition/offset make
// redelivery harmless.
type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	svc    *application.Service
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("vendor-notifier"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderPlaced")

		var event checkout.OrderPlaced
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Error("unmarshal failed", "err", err)
			span.End()
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		if err := c.svc.NotifyOrderPlaced(msgCtx, event.OrderID, event.VendorID, event.OrderNumber, event.TotalCents); err != nil {
			c.log.Error("notify failed", "order_number", event.OrderNumber, "err", err)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}
