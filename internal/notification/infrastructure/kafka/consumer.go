package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookverse/bookverse/internal/notification/application"
	orderdomain "github.com/bookverse/bookverse/internal/order/domain"
	"github.com/bookverse/bookverse/pkg/idempotency"
	"github.com/bookverse/bookverse/pkg/tracing"
)

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
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.OffsetKey(msg.Topic, msg.Partition, msg.Offset)
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
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent")

		if err := c.handle(msgCtx, msg); err != nil {
			c.log.Error("notification failed", "err", err)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	switch headerValue(msg.Headers, "event_type") {
	case orderdomain.EventOrderPlaced:
		var ev orderdomain.OrderPlaced
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		return c.svc.NotifyOrderPlaced(ctx, ev)
	case orderdomain.EventOrderPaid:
		var ev orderdomain.OrderPaid
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return err
		}
		return c.svc.NotifyOrderPaid(ctx, ev)
	default:
		c.log.Warn("unknown event type skipped", "key", string(msg.Key))
		return nil
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
