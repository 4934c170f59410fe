package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"

	"github.com/courtside-app/courtside-backend/pkg/enums"
	"github.com/courtside-app/courtside-backend/pkg/logger"
	"github.com/courtside-app/courtside-backend/pkg/outbox"
	redispkg "github.com/courtside-app/courtside-backend/pkg/redis"
)

const (
	consumerGuardScope = "notifications:event"
	consumerGuardTTL   = 24 * time.Hour
)

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer pulls published domain events and fans them out as
// notifications. Delivery is at least once, so events are deduped by their
// envelope id before processing.
type Consumer struct {
	sub   subscriber
	svc   Service
	guard redispkg.IdempotencyStore
	logg  *logger.Logger
}

// NewConsumer builds the notification event consumer.
func NewConsumer(sub subscriber, svc Service, guard redispkg.IdempotencyStore, logg *logger.Logger) (*Consumer, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	return &Consumer{sub: sub, svc: svc, guard: guard, logg: logg}, nil
}

// Run blocks receiving messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "decoding event envelope", err)
		}
		// a malformed envelope never becomes valid on redelivery
		msg.Ack()
		return
	}

	if envelope.EventID != "" {
		key := c.guard.IdempotencyKey(consumerGuardScope, envelope.EventID)
		first, err := c.guard.SetNX(ctx, key, 1, consumerGuardTTL)
		if err != nil {
			msg.Nack()
			return
		}
		if !first {
			msg.Ack()
			return
		}
	}

	if err := c.svc.ProcessEvent(ctx, eventType, envelope); err != nil {
		if c.logg != nil {
			logCtx := c.logg.WithField(ctx, "event_type", eventType)
			c.logg.Error(logCtx, "processing notification event", err)
		}
		if envelope.EventID != "" {
			_ = c.guard.Del(ctx, c.guard.IdempotencyKey(consumerGuardScope, envelope.EventID))
		}
		msg.Nack()
		return
	}
	msg.Ack()
}
