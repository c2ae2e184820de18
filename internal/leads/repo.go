package leads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
)

// Repository handles lead and stage persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to lead operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a lead by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "lead not found")
		}
		return nil, err
	}
	return &lead, nil
}

// ListByClinic returns leads scoped to one clinic.
func (r *Repository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Order("created_at DESC").
		Find(&leads).Error
	return leads, err
}

// FindStageTx loads a stage inside the caller's transaction.
func (r *Repository) FindStageTx(tx *gorm.DB, stageID uuid.UUID) (*models.Stage, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var stage models.Stage
	if err := tx.Where("id = ?", stageID).First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "stage not found")
		}
		return nil, err
	}
	return &stage, nil
}

// FindByIDTx loads a lead inside the caller's transaction.
func (r *Repository) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Lead, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var lead models.Lead
	if err := tx.Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "lead not found")
		}
		return nil, err
	}
	return &lead, nil
}

// UpdateStageTx moves a lead to the given stage inside the transaction.
func (r *Repository) UpdateStageTx(tx *gorm.DB, leadID, stageID uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Update("stage_id", stageID).Error
}
