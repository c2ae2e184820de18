package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/enums"
)

// MessageCreatedEvent signals a newly persisted outbound chat message. The
// dispatch worker consumes it to run the webhook delivery procedure.
type MessageCreatedEvent struct {
	MessageID   uuid.UUID         `json:"message_id"`
	LeadID      uuid.UUID         `json:"lead_id"`
	ClinicID    uuid.UUID         `json:"clinic_id"`
	Content     string            `json:"content"`
	MessageType enums.MessageType `json:"message_type"`
	CreatedAt   time.Time         `json:"created_at"`
	AIEnabled   bool              `json:"ai_enabled"`
}

// LeadStageChangedEvent is emitted when a lead moves across kanban stages.
type LeadStageChangedEvent struct {
	LeadID      uuid.UUID  `json:"lead_id"`
	ClinicID    uuid.UUID  `json:"clinic_id"`
	FromStageID *uuid.UUID `json:"from_stage_id"`
	ToStageID   uuid.UUID  `json:"to_stage_id"`
	MovedAt     time.Time  `json:"moved_at"`
}

// SubscriptionStateChangedEvent reports a Stripe subscription transition.
type SubscriptionStateChangedEvent struct {
	ClinicID             uuid.UUID                `json:"clinic_id"`
	StripeSubscriptionID string                   `json:"stripe_subscription_id"`
	Status               enums.SubscriptionStatus `json:"status"`
	Active               bool                     `json:"active"`
}
