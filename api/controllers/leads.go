package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinicore-backend/api/responses"
	"github.com/clinicore/clinicore-backend/api/validators"
	pkgerrors "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
)

type LeadStageMover interface {
	MoveStage(ctx context.Context, clinicID, leadID, stageID uuid.UUID) error
}

type moveLeadStageRequest struct {
	ClinicID uuid.UUID `json:"clinic_id" validate:"required"`
	StageID  uuid.UUID `json:"stage_id" validate:"required"`
}

// MoveLeadStage moves a lead to another kanban stage.
func MoveLeadStage(svc LeadStageMover, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		leadID, err := uuid.Parse(chi.URLParam(r, "leadId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lead id"))
			return
		}

		var req moveLeadStageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MoveStage(r.Context(), req.ClinicID, leadID, req.StageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"moved": true})
	}
}
