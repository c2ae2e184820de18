package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/enums"
)

// Subscription mirrors the Stripe subscription attached to a clinic.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicID             uuid.UUID                `gorm:"column:clinic_id;type:uuid;not null"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;not null;uniqueIndex:ux_subscriptions_stripe_id"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:subscription_status_enum;not null"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
