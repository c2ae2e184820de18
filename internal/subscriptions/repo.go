package subscriptions

import (
	"errors"

	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
)

// Repository handles subscription persistence. All writes run inside the
// caller's transaction so the subscription row and the clinic flag commit
// together.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to subscription operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByStripeIDTx returns the stored subscription, or nil when none exists.
func (r *Repository) FindByStripeIDTx(tx *gorm.DB, stripeSubscriptionID string) (*models.Subscription, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var sub models.Subscription
	err := tx.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// CreateTx inserts a new subscription row.
func (r *Repository) CreateTx(tx *gorm.DB, sub *models.Subscription) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(sub).Error
}

// UpdateTx saves changes to an existing subscription row.
func (r *Repository) UpdateTx(tx *gorm.DB, sub *models.Subscription) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Save(sub).Error
}
