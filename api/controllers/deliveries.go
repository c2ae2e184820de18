package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/api/responses"
	"github.com/clinicore/clinicore-backend/pkg/db/models"
	pkgerrors "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/pagination"
)

type DeliveryLister interface {
	ListByClinic(ctx context.Context, clinicID uuid.UUID, params pagination.Params) ([]models.WebhookDelivery, *pagination.Cursor, error)
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]models.WebhookDelivery, error)
}

// ListDeliveries returns webhook delivery logs for a clinic, newest first.
func ListDeliveries(lister DeliveryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery log unavailable"))
			return
		}

		clinicParam := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
		if clinicParam == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "clinic_id is required"))
			return
		}
		clinicID, err := uuid.Parse(clinicParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid clinic id"))
			return
		}

		params := pagination.Params{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}

		deliveries, next, err := lister.ListByClinic(r.Context(), clinicID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"deliveries": deliveries}
		if next != nil {
			payload["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, payload)
	}
}

// ListMessageDeliveries returns every delivery row recorded for one message.
func ListMessageDeliveries(lister DeliveryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery log unavailable"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		deliveries, err := lister.ListByMessage(r.Context(), messageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deliveries": deliveries})
	}
}
