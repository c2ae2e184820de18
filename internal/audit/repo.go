package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/pagination"
)

// Repository persists webhook delivery audit rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to audit operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts the per-invocation delivery outcome row.
func (r *Repository) Record(ctx context.Context, entry models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// ListByClinic returns delivery rows for a clinic, newest first, using keyset
// pagination on (created_at, id).
func (r *Repository) ListByClinic(ctx context.Context, clinicID uuid.UUID, params pagination.Params) ([]models.WebhookDelivery, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, errs.Wrap(errs.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Where("clinic_id = ?", clinicID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.WebhookDelivery
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// DeleteCreatedBefore purges delivery rows older than the cutoff.
func (r *Repository) DeleteCreatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.WebhookDelivery{})
	return res.RowsAffected, res.Error
}

// ListByMessage returns delivery rows for one message, newest first.
func (r *Repository) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]models.WebhookDelivery, error) {
	var rows []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
