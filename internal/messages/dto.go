package messages

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
)

// CreateMessageDTO is the validated intake payload for a new outbound chat
// message.
type CreateMessageDTO struct {
	ClinicID    uuid.UUID `json:"clinic_id" validate:"required"`
	LeadID      uuid.UUID `json:"lead_id" validate:"required"`
	Content     string    `json:"content" validate:"required,max=4096"`
	MessageType string    `json:"message_type" validate:"omitempty,oneof=conversation image audio document"`
	AIEnabled   bool      `json:"ai_enabled"`
}

// ToModel converts the DTO into a persistable chat message.
func (dto CreateMessageDTO) ToModel() *models.ChatMessage {
	return &models.ChatMessage{
		ID:          uuid.New(),
		ClinicID:    dto.ClinicID,
		LeadID:      dto.LeadID,
		Content:     dto.Content,
		MessageType: enums.MessageType(dto.MessageType).OrDefault(),
		AIEnabled:   dto.AIEnabled,
		CreatedAt:   time.Now().UTC(),
	}
}
