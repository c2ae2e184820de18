package clinics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
)

// Repository handles clinic (tenant) persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to clinic operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a clinic by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&clinic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "clinic not found")
		}
		return nil, err
	}
	return &clinic, nil
}

// FindByStripeCustomerID resolves the clinic owning a Stripe customer.
func (r *Repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Clinic, error) {
	if customerID == "" {
		return nil, errs.New(errs.CodeValidation, "stripe customer id is required")
	}
	var clinic models.Clinic
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&clinic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "clinic not found for stripe customer")
		}
		return nil, err
	}
	return &clinic, nil
}

// FindByIDTx loads a clinic inside the caller's transaction.
func (r *Repository) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Clinic, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var clinic models.Clinic
	if err := tx.Where("id = ?", id).First(&clinic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "clinic not found")
		}
		return nil, err
	}
	return &clinic, nil
}

// SetSubscriptionActiveTx flips the cached subscription flag inside the
// caller's transaction so it commits with the subscription row.
func (r *Repository) SetSubscriptionActiveTx(tx *gorm.DB, clinicID uuid.UUID, active bool) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.Clinic{}).
		Where("id = ?", clinicID).
		Update("subscription_active", active).Error
}
