package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookDelivery is the audit row written once per dispatch invocation, after
// the retry loop concludes. StatusCode is 0 when every attempt failed at the
// network level.
type WebhookDelivery struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicID     uuid.UUID `gorm:"column:clinic_id;type:uuid;not null"`
	LeadID       uuid.UUID `gorm:"column:lead_id;type:uuid;not null"`
	MessageID    uuid.UUID `gorm:"column:message_id;type:uuid;not null"`
	WebhookURL   string    `gorm:"column:webhook_url;not null"`
	StatusCode   int       `gorm:"column:status_code;not null;default:0"`
	ResponseBody *string   `gorm:"column:response_body"`
	ErrorMessage *string   `gorm:"column:error_message"`
	AttemptCount int       `gorm:"column:attempt_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
