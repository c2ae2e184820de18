package messages

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/outbox/payloads"
)

// LeadDirectory resolves the lead a message is addressed to.
type LeadDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

// TxRunner executes fn in a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service persists outbound chat messages. Every create emits a
// message_created outbox event in the same transaction, which is what
// ultimately triggers the webhook dispatch pipeline.
type Service struct {
	tx     TxRunner
	repo   *Repository
	leads  LeadDirectory
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewService wires the message service collaborators.
func NewService(tx TxRunner, repo *Repository, leads LeadDirectory, outboxSvc *outbox.Service, logg *logger.Logger) (*Service, error) {
	if tx == nil || repo == nil || leads == nil || outboxSvc == nil || logg == nil {
		return nil, fmt.Errorf("all message service dependencies are required")
	}
	return &Service{
		tx:     tx,
		repo:   repo,
		leads:  leads,
		outbox: outboxSvc,
		logg:   logg,
	}, nil
}

// Create validates tenancy, inserts the message row, and queues the outbox
// event atomically.
func (s *Service) Create(ctx context.Context, dto CreateMessageDTO) (*models.ChatMessage, error) {
	ctx = s.logg.WithClinicID(ctx, dto.ClinicID.String())
	ctx = s.logg.WithLeadID(ctx, dto.LeadID.String())

	lead, err := s.leads.FindByID(ctx, dto.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.ClinicID != dto.ClinicID {
		return nil, errs.New(errs.CodeNotFound, "lead not found")
	}

	message := dto.ToModel()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, message); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMessageCreated,
			AggregateType: enums.AggregateChatMessage,
			AggregateID:   message.ID,
			Data: payloads.MessageCreatedEvent{
				MessageID:   message.ID,
				LeadID:      message.LeadID,
				ClinicID:    message.ClinicID,
				Content:     message.Content,
				MessageType: message.MessageType,
				CreatedAt:   message.CreatedAt,
				AIEnabled:   message.AIEnabled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithMessageID(ctx, message.ID.String()), "chat message created")
	return message, nil
}
