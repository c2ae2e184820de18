package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore-backend/internal/dispatch"
	"github.com/clinicore/clinicore-backend/internal/messages"
	"github.com/clinicore/clinicore-backend/pkg/config"
	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/pagination"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubMessageService struct{}

func (stubMessageService) Create(ctx context.Context, dto messages.CreateMessageDTO) (*models.ChatMessage, error) {
	return &models.ChatMessage{
		ID:          uuid.New(),
		ClinicID:    dto.ClinicID,
		LeadID:      dto.LeadID,
		Content:     dto.Content,
		MessageType: enums.MessageTypeConversation,
	}, nil
}

type stubMessageFinder struct{}

func (stubMessageFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	return nil, errors.New("not implemented")
}

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(ctx context.Context, in dispatch.Input) (dispatch.Result, error) {
	return dispatch.Result{}, errors.New("not implemented")
}

type stubLeadMover struct{}

func (stubLeadMover) MoveStage(ctx context.Context, clinicID, leadID, stageID uuid.UUID) error {
	return nil
}

type stubDeliveryLister struct{}

func (stubDeliveryLister) ListByClinic(ctx context.Context, clinicID uuid.UUID, params pagination.Params) ([]models.WebhookDelivery, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubDeliveryLister) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]models.WebhookDelivery, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, dbErr, redisErr error) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{
		ServiceName: "router-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
	return NewRouter(
		cfg,
		logg,
		stubPinger{err: dbErr},
		stubPinger{err: redisErr},
		stubMessageService{},
		stubMessageFinder{},
		stubDispatcher{},
		stubLeadMover{},
		stubDeliveryLister{},
		nil,
		nil,
		nil,
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-CliniCore-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected request id header to be set")
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	router := newTestRouter(t, errors.New("db down"), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHealthReadySucceeds(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateMessageRouteRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateMessageRouteAcceptsGoodJSON(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	body := []byte(`{"clinic_id":"` + uuid.NewString() + `","lead_id":"` + uuid.NewString() + `","content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestDeliveriesRouteRequiresClinicID(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deliveries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStripeWebhookRouteRequiresSignature(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature header, got %d", rec.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
