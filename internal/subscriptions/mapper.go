package subscriptions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	pkgerrors "github.com/clinicore/clinicore-backend/pkg/errors"
)

// BuildSubscriptionFromStripe maps a Stripe subscription into the canonical model.
func BuildSubscriptionFromStripe(stripeSub *stripe.Subscription, clinicID uuid.UUID) (*models.Subscription, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}
	status, err := mapStripeStatus(stripeSub.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid stripe subscription status")
	}

	return &models.Subscription{
		ClinicID:             clinicID,
		StripeSubscriptionID: stripeSub.ID,
		StripeCustomerID:     customerIDPtr(stripeSub),
		Status:               status,
		CurrentPeriodEnd:     periodEndFromStripe(stripeSub),
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
	}, nil
}

// UpdateSubscriptionFromStripe mutates the provided subscription with new Stripe data.
func UpdateSubscriptionFromStripe(target *models.Subscription, stripeSub *stripe.Subscription) error {
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "target subscription is nil")
	}
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}
	status, err := mapStripeStatus(stripeSub.Status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid stripe subscription status")
	}

	target.StripeSubscriptionID = stripeSub.ID
	target.Status = status
	if customer := customerIDPtr(stripeSub); customer != nil {
		target.StripeCustomerID = customer
	}
	target.CurrentPeriodEnd = periodEndFromStripe(stripeSub)
	target.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	return nil
}

// ClinicIDFromMetadata extracts the clinic ID that was attached to Stripe metadata.
func ClinicIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	if metadata == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription metadata is required")
	}
	clinicID, ok := metadata["clinic_id"]
	if !ok || strings.TrimSpace(clinicID) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "clinic_id missing from metadata")
	}
	id, err := uuid.Parse(strings.TrimSpace(clinicID))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid clinic_id metadata")
	}
	return id, nil
}

// IsActiveStatus reports whether the provided status keeps the clinic's
// subscription flag on.
func IsActiveStatus(status enums.SubscriptionStatus) bool {
	return status == enums.SubscriptionStatusActive || status == enums.SubscriptionStatusTrialing
}

func mapStripeStatus(status stripe.SubscriptionStatus) (enums.SubscriptionStatus, error) {
	mapped := enums.SubscriptionStatus(status)
	if !mapped.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "unknown subscription status "+string(status))
	}
	return mapped, nil
}

func customerIDPtr(stripeSub *stripe.Subscription) *string {
	if stripeSub.Customer == nil || stripeSub.Customer.ID == "" {
		return nil
	}
	id := stripeSub.Customer.ID
	return &id
}

// periodEndFromStripe reads the current period end off the first subscription
// item, where recent Stripe API versions carry it.
func periodEndFromStripe(stripeSub *stripe.Subscription) *time.Time {
	if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 {
		return nil
	}
	ts := stripeSub.Items.Data[0].CurrentPeriodEnd
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
