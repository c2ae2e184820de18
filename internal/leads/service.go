package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/outbox/payloads"
)

// TxRunner executes fn in a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service moves leads across the kanban pipeline and emits the matching
// outbox event in the same transaction.
type Service struct {
	tx     TxRunner
	repo   *Repository
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewService wires the lead service collaborators.
func NewService(tx TxRunner, repo *Repository, outboxSvc *outbox.Service, logg *logger.Logger) (*Service, error) {
	if tx == nil || repo == nil || outboxSvc == nil || logg == nil {
		return nil, fmt.Errorf("all lead service dependencies are required")
	}
	return &Service{tx: tx, repo: repo, outbox: outboxSvc, logg: logg}, nil
}

// MoveStage places the lead on a new stage. The stage must belong to the
// lead's clinic.
func (s *Service) MoveStage(ctx context.Context, clinicID, leadID, stageID uuid.UUID) error {
	ctx = s.logg.WithClinicID(ctx, clinicID.String())
	ctx = s.logg.WithLeadID(ctx, leadID.String())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lead, err := s.repo.FindByIDTx(tx, leadID)
		if err != nil {
			return err
		}
		if lead.ClinicID != clinicID {
			return errs.New(errs.CodeNotFound, "lead not found")
		}

		stage, err := s.repo.FindStageTx(tx, stageID)
		if err != nil {
			return err
		}
		if stage.ClinicID != clinicID {
			return errs.New(errs.CodeValidation, "stage belongs to another clinic")
		}
		if lead.StageID != nil && *lead.StageID == stageID {
			return nil
		}

		if err := s.repo.UpdateStageTx(tx, leadID, stageID); err != nil {
			return err
		}

		// A lead can be moved again before the publisher drains the first
		// event; the partial unique index would reject a plain insert.
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadStageChanged,
			AggregateType: enums.AggregateLead,
			AggregateID:   leadID,
			Data: payloads.LeadStageChangedEvent{
				LeadID:      leadID,
				ClinicID:    clinicID,
				FromStageID: lead.StageID,
				ToStageID:   stageID,
				MovedAt:     time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "stage_id", stageID.String()), "lead moved to stage")
	return nil
}
