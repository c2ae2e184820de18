package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/outbox/idempotency"
	"github.com/clinicore/clinicore-backend/pkg/outbox/payloads"
)

// ConsumerName identifies this consumer in idempotency keys.
const ConsumerName = "dispatch-worker"

type dispatcher interface {
	Dispatch(ctx context.Context, in Input) (Result, error)
}

// Consumer drains message-created events and hands them to the dispatcher.
type Consumer struct {
	dispatcher   dispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a dispatch consumer.
func NewConsumer(svc dispatcher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("message subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   svc,
		subscription: subscription,
		idempotency:  manager,
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
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventMessageCreated) {
		c.logg.Info(logCtx, "skipping non-message event")
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, ConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.MessageCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, ConsumerName, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"chat_message_id": payload.MessageID.String(),
		"lead_id":         payload.LeadID.String(),
		"clinic_id":       payload.ClinicID.String(),
	})

	in := Input{
		MessageID:   payload.MessageID,
		LeadID:      payload.LeadID,
		ClinicID:    payload.ClinicID,
		Content:     payload.Content,
		MessageType: payload.MessageType,
		CreatedAt:   payload.CreatedAt,
		AIEnabled:   payload.AIEnabled,
	}

	if _, err := c.dispatcher.Dispatch(ctx, in); err != nil {
		if coded := errs.As(err); coded != nil &&
			(coded.Code() == errs.CodeValidation || coded.Code() == errs.CodeNotFound) {
			c.logg.Error(logCtx, "dropping undeliverable event", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "dispatch failed", err)
		_ = c.idempotency.Delete(ctx, ConsumerName, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}
