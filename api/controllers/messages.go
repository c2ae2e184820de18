package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/api/responses"
	"github.com/clinicore/clinicore-backend/api/validators"
	"github.com/clinicore/clinicore-backend/internal/dispatch"
	"github.com/clinicore/clinicore-backend/internal/messages"
	"github.com/clinicore/clinicore-backend/pkg/db/models"
	pkgerrors "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
)

type MessageService interface {
	Create(ctx context.Context, dto messages.CreateMessageDTO) (*models.ChatMessage, error)
}

type MessageFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, in dispatch.Input) (dispatch.Result, error)
}

// CreateMessage persists an outbound chat message and queues its webhook dispatch.
func CreateMessage(svc MessageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}

		var dto messages.CreateMessageDTO
		if err := validators.DecodeJSONBody(r, &dto); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Create(r.Context(), dto)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// DispatchMessage re-runs the webhook dispatch procedure for a stored message.
func DispatchMessage(finder MessageFinder, dispatcher Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if finder == nil || dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		message, err := finder.FindByID(r.Context(), messageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := dispatcher.Dispatch(r.Context(), dispatch.Input{
			MessageID:   message.ID,
			LeadID:      message.LeadID,
			ClinicID:    message.ClinicID,
			Content:     message.Content,
			MessageType: message.MessageType,
			CreatedAt:   message.CreatedAt,
			AIEnabled:   message.AIEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"success":  result.Success,
			"attempts": result.Attempts,
			"status":   result.Status,
			"error":    result.Error,
		})
	}
}
