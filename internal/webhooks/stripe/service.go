package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/internal/subscriptions"
	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	pkgerrors "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/outbox/payloads"
)

type subscriptionRepository interface {
	FindByStripeIDTx(tx *gorm.DB, stripeSubscriptionID string) (*models.Subscription, error)
	CreateTx(tx *gorm.DB, sub *models.Subscription) error
	UpdateTx(tx *gorm.DB, sub *models.Subscription) error
}

type clinicRepository interface {
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*models.Clinic, error)
	SetSubscriptionActiveTx(tx *gorm.DB, clinicID uuid.UUID, active bool) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the stripe webhook collaborators.
type ServiceParams struct {
	SubscriptionRepo  subscriptionRepository
	ClinicRepo        clinicRepository
	StripeClient      subscriptions.StripeSubscriptionClient
	Outbox            outboxEmitter
	TransactionRunner txRunner
}

// Service applies inbound Stripe subscription events to the local state.
type Service struct {
	subscriptionRepo subscriptionRepository
	clinicRepo       clinicRepository
	stripe           subscriptions.StripeSubscriptionClient
	outbox           outboxEmitter
	txRunner         txRunner
}

// NewService validates and wires the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.ClinicRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clinic repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		subscriptionRepo: params.SubscriptionRepo,
		clinicRepo:       params.ClinicRepo,
		stripe:           params.StripeClient,
		outbox:           params.Outbox,
		txRunner:         params.TransactionRunner,
	}, nil
}

// HandleEvent routes a verified Stripe event to the subscription sync.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
		}
		stripeSub, err := s.stripe.Get(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		return s.syncSubscription(ctx, stripeSub)
	default:
		return nil
	}
}

func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		stored, err := s.subscriptionRepo.FindByStripeIDTx(tx, stripeSub.ID)
		if err != nil {
			return err
		}

		clinicID, metadataErr := subscriptions.ClinicIDFromMetadata(stripeSub.Metadata)
		if metadataErr != nil && stored != nil {
			clinicID = stored.ClinicID
			metadataErr = nil
		}
		if metadataErr != nil {
			return metadataErr
		}

		var current *models.Subscription
		if stored == nil {
			built, buildErr := subscriptions.BuildSubscriptionFromStripe(stripeSub, clinicID)
			if buildErr != nil {
				return buildErr
			}
			if err := s.subscriptionRepo.CreateTx(tx, built); err != nil {
				return err
			}
			current = built
		} else {
			if err := subscriptions.UpdateSubscriptionFromStripe(stored, stripeSub); err != nil {
				return err
			}
			if err := s.subscriptionRepo.UpdateTx(tx, stored); err != nil {
				return err
			}
			current = stored
		}

		clinic, err := s.clinicRepo.FindByIDTx(tx, clinicID)
		if err != nil {
			return err
		}

		active := subscriptions.IsActiveStatus(current.Status)
		if clinic.SubscriptionActive == active {
			return nil
		}

		if err := s.clinicRepo.SetSubscriptionActiveTx(tx, clinicID, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update clinic subscription flag")
		}

		// Stripe retries webhooks, so the same transition can arrive while
		// the previous event is still waiting in the outbox.
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionStateChanged,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   clinicID,
			Data: payloads.SubscriptionStateChangedEvent{
				ClinicID:             clinicID,
				StripeSubscriptionID: current.StripeSubscriptionID,
				Status:               current.Status,
				Active:               active,
			},
		})
	})
}
