package messages

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
)

// Repository handles chat message persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to message operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts the message inside the caller's transaction so the row
// commits atomically with its outbox event.
func (r *Repository) CreateTx(tx *gorm.DB, message *models.ChatMessage) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(message).Error
}

// FindByID loads a chat message by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "message not found")
		}
		return nil, err
	}
	return &message, nil
}

// ListByLead returns messages for a lead, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
