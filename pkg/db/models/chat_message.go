package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/enums"
)

// ChatMessage is an outbound chat message written from the CRM to a lead.
type ChatMessage struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClinicID    uuid.UUID         `gorm:"column:clinic_id;type:uuid;not null"`
	LeadID      uuid.UUID         `gorm:"column:lead_id;type:uuid;not null"`
	Content     string            `gorm:"column:content;type:text;not null"`
	MessageType enums.MessageType `gorm:"column:message_type;type:message_type_enum;not null;default:'conversation'"`
	AIEnabled   bool              `gorm:"column:ai_enabled;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
