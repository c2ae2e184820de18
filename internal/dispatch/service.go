package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/metrics"
)

// ClinicDirectory resolves the tenant owning a message.
type ClinicDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Clinic, error)
}

// LeadDirectory resolves the lead a message is addressed to.
type LeadDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

// AuditLog persists the delivery outcome. One row per invocation.
type AuditLog interface {
	Record(ctx context.Context, entry models.WebhookDelivery) error
}

// TokenMinter issues the bearer token attached to each delivery.
type TokenMinter interface {
	Mint(clinicID uuid.UUID) (string, error)
}

// EventDeliverer runs the HTTP retry loop.
type EventDeliverer interface {
	URL() string
	Deliver(ctx context.Context, token string, event *OutboundEvent) (Result, error)
}

// Input carries the identifiers of a newly persisted chat message.
type Input struct {
	MessageID   uuid.UUID
	LeadID      uuid.UUID
	ClinicID    uuid.UUID
	Content     string
	MessageType enums.MessageType
	CreatedAt   time.Time
	AIEnabled   bool
}

func (in Input) validate() error {
	if in.MessageID == uuid.Nil {
		return errs.New(errs.CodeValidation, "message id is required")
	}
	if in.LeadID == uuid.Nil {
		return errs.New(errs.CodeValidation, "lead id is required")
	}
	if in.ClinicID == uuid.Nil {
		return errs.New(errs.CodeValidation, "clinic id is required")
	}
	return nil
}

// Service orchestrates one dispatch invocation: directory lookups, payload
// build, token mint, delivery loop, audit write.
type Service struct {
	clinics   ClinicDirectory
	leads     LeadDirectory
	signer    TokenMinter
	deliverer EventDeliverer
	audit     AuditLog
	logg      *logger.Logger
	metrics   *metrics.DispatchMetrics
	consumer  string
}

// NewService wires the dispatch collaborators together. Metrics may be nil.
func NewService(
	clinics ClinicDirectory,
	leads LeadDirectory,
	signer TokenMinter,
	deliverer EventDeliverer,
	audit AuditLog,
	logg *logger.Logger,
	m *metrics.DispatchMetrics,
	consumer string,
) (*Service, error) {
	if clinics == nil || leads == nil {
		return nil, fmt.Errorf("clinic and lead directories are required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit log is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if consumer == "" {
		consumer = "dispatch"
	}
	return &Service{
		clinics:   clinics,
		leads:     leads,
		signer:    signer,
		deliverer: deliverer,
		audit:     audit,
		logg:      logg,
		metrics:   m,
		consumer:  consumer,
	}, nil
}

// Dispatch runs the full procedure for one message. The returned error is
// non-nil only when the delivery loop never reached a terminal state:
// validation or configuration failures, directory lookup errors, or context
// cancellation mid-loop. When err is nil the Result is terminal (Succeeded or
// Exhausted) and exactly one audit row has been written.
func (s *Service) Dispatch(ctx context.Context, in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}

	ctx = s.logg.WithClinicID(ctx, in.ClinicID.String())
	ctx = s.logg.WithMessageID(ctx, in.MessageID.String())
	started := time.Now()

	// A missing clinic or lead is a configuration failure, not an infra one;
	// the repositories already code it NOT_FOUND, so keep that class intact.
	clinic, err := s.clinics.FindByID(ctx, in.ClinicID)
	if err != nil {
		if coded := errs.As(err); coded != nil {
			return Result{}, coded
		}
		return Result{}, errs.Wrap(errs.CodeDependency, err, "loading clinic")
	}
	lead, err := s.leads.FindByID(ctx, in.LeadID)
	if err != nil {
		if coded := errs.As(err); coded != nil {
			return Result{}, coded
		}
		return Result{}, errs.Wrap(errs.CodeDependency, err, "loading lead")
	}

	event, err := BuildEvent(BuildInput{
		MessageID:   in.MessageID,
		LeadID:      in.LeadID,
		ClinicID:    in.ClinicID,
		Content:     in.Content,
		MessageType: in.MessageType,
		CreatedAt:   in.CreatedAt,
		AIEnabled:   in.AIEnabled,
		RoutingKey:  clinic.RoutingKey(),
		LeadPhone:   lead.Phone,
		LeadName:    lead.Name,
	})
	if err != nil {
		return Result{}, err
	}

	token, err := s.signer.Mint(in.ClinicID)
	if err != nil {
		return Result{}, errs.Wrap(errs.CodeInternal, err, "minting dispatch token")
	}

	result, err := s.deliverer.Deliver(ctx, token, event)
	if err != nil {
		return result, errs.Wrap(errs.CodeDependency, err, "delivery loop interrupted")
	}

	s.recordAudit(ctx, in, result)
	s.observe(result, time.Since(started))

	if result.Success {
		s.logg.Info(s.logg.WithField(ctx, "attempts", result.Attempts), "webhook delivered")
	} else {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"attempts": result.Attempts,
			"status":   result.Status,
			"error":    result.Error,
		}), "webhook delivery exhausted")
	}
	return result, nil
}

// recordAudit writes the single per-invocation audit row. Best effort: a
// failed write is logged and does not alter the dispatch outcome.
func (s *Service) recordAudit(ctx context.Context, in Input, result Result) {
	entry := models.WebhookDelivery{
		ClinicID:     in.ClinicID,
		LeadID:       in.LeadID,
		MessageID:    in.MessageID,
		WebhookURL:   s.deliverer.URL(),
		StatusCode:   result.Status,
		AttemptCount: result.Attempts,
	}
	if result.Success {
		body := result.ResponseBody
		entry.ResponseBody = &body
	} else {
		errMsg := result.Error
		entry.ErrorMessage = &errMsg
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logg.Error(ctx, "writing webhook delivery audit row", err)
	}
}

func (s *Service) observe(result Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(s.consumer, elapsed)
	s.metrics.ObserveAttempts(s.consumer, result.Attempts)
	if result.Success {
		s.metrics.IncDelivered(s.consumer)
	} else {
		s.metrics.IncExhausted(s.consumer)
	}
}
