package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Clinic represents the canonical tenant model. WhatsAppInstance is the
// per-tenant routing key consumed by the webhook dispatch procedure; it is
// nullable because newly onboarded clinics have no messaging channel yet.
type Clinic struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string         `gorm:"column:name;not null"`
	Phone              *string        `gorm:"column:phone"`
	Email              *string        `gorm:"column:email"`
	WhatsAppInstance   *string        `gorm:"column:whatsapp_instance"`
	AIEnabled          bool           `gorm:"column:ai_enabled;not null;default:false"`
	SubscriptionActive bool           `gorm:"column:subscription_active;not null;default:false"`
	StripeCustomerID   *string        `gorm:"column:stripe_customer_id"`
	Specialties        pq.StringArray `gorm:"column:specialties;type:text[]"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// RoutingKey returns the trimmed messaging instance identifier, or "" when the
// clinic has none configured.
func (c Clinic) RoutingKey() string {
	if c.WhatsAppInstance == nil {
		return ""
	}
	return strings.TrimSpace(*c.WhatsAppInstance)
}
