package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/pkg/db/models"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/outbox"
	"github.com/rigforge/rigforge-backend/pkg/outbox/idempotency"
)

const orderNotificationConsumer = "order-notifications"

type livePublisher interface {
	PublishNotification(ctx context.Context, payload any) error
}

// Consumer watches domain events and turns order activity into customer
// notifications: a stored feed row plus a live fanout over Redis pub/sub.
// The fanout is best effort; the stored row is what the feed reads.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	live         livePublisher
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer. The live publisher may be
// nil when Redis fanout is disabled.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, live livePublisher, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		live:         live,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) && eventType != string(enums.EventOrderStatusUpdated) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload orderEventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id":     payload.OrderID.String(),
		"order_number": payload.OrderNumber,
	})
	if err := c.handle(ctx, enums.OutboxEventType(eventType), payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload orderEventPayload, logCtx context.Context) error {
	if payload.UserID == uuid.Nil || payload.OrderID == uuid.Nil {
		return fmt.Errorf("payload missing user or order id")
	}

	kind := enums.NotificationStatusUpdate
	message := payload.Message
	if eventType == enums.EventOrderCreated {
		kind = enums.NotificationNewOrder
		message = fmt.Sprintf("Order #%d has been placed.", payload.OrderNumber)
	}
	if message == "" {
		message = fmt.Sprintf("Order #%d was updated.", payload.OrderNumber)
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  payload.UserID,
		Type:    kind,
		OrderID: &payload.OrderID,
		Message: message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "notification stored")

	if c.live != nil {
		wire, err := json.Marshal(liveNotification{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
			Type:           notification.Type,
			OrderID:        payload.OrderID,
			OrderNumber:    payload.OrderNumber,
			Message:        notification.Message,
		})
		if err == nil {
			err = c.live.PublishNotification(ctx, wire)
		}
		if err != nil {
			// live fanout is best effort; the stored row already exists
			c.logg.Warn(logCtx, "live notification fanout failed")
		}
	}
	return nil
}

// orderEventPayload covers both order event shapes; unused fields stay zero.
type orderEventPayload struct {
	OrderID         uuid.UUID         `json:"order_id"`
	OrderNumber     int64             `json:"order_number"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          enums.OrderStatus `json:"status,omitempty"`
	Message         string            `json:"message,omitempty"`
	TotalPriceCents int               `json:"total_price_cents,omitempty"`
}

type liveNotification struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	OrderID        uuid.UUID              `json:"order_id"`
	OrderNumber    int64                  `json:"order_number"`
	Message        string                 `json:"message"`
}
