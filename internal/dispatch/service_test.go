package dispatch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
)

type fakeClinicDirectory struct {
	clinic *models.Clinic
	err    error
}

func (f *fakeClinicDirectory) FindByID(context.Context, uuid.UUID) (*models.Clinic, error) {
	return f.clinic, f.err
}

type fakeLeadDirectory struct {
	lead *models.Lead
	err  error
}

func (f *fakeLeadDirectory) FindByID(context.Context, uuid.UUID) (*models.Lead, error) {
	return f.lead, f.err
}

type fakeSigner struct {
	token string
	err   error
	calls int
}

func (f *fakeSigner) Mint(uuid.UUID) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeDeliverer struct {
	result    Result
	err       error
	calls     int
	lastToken string
	lastEvent *OutboundEvent
}

func (f *fakeDeliverer) URL() string {
	return "https://downstream.example/webhook"
}

func (f *fakeDeliverer) Deliver(_ context.Context, token string, event *OutboundEvent) (Result, error) {
	f.calls++
	f.lastToken = token
	f.lastEvent = event
	return f.result, f.err
}

type fakeAuditLog struct {
	entries []models.WebhookDelivery
	err     error
}

func (f *fakeAuditLog) Record(_ context.Context, entry models.WebhookDelivery) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "dispatch-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
}

func testInput() Input {
	createdAt, _ := time.Parse(time.RFC3339, "2024-03-15T12:00:00.000Z")
	return Input{
		MessageID:   uuid.New(),
		LeadID:      uuid.New(),
		ClinicID:    uuid.New(),
		Content:     "Olá!",
		MessageType: enums.MessageTypeConversation,
		CreatedAt:   createdAt,
		AIEnabled:   false,
	}
}

func newTestService(t *testing.T, clinics *fakeClinicDirectory, leads *fakeLeadDirectory, deliverer *fakeDeliverer, audit *fakeAuditLog) *Service {
	t.Helper()
	svc, err := NewService(clinics, leads, &fakeSigner{token: "signed-token"}, deliverer, audit, testLogger(), nil, "dispatch-test")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func directoryFixtures() (*fakeClinicDirectory, *fakeLeadDirectory) {
	instance := "clinic-instance-01"
	phone := "(11) 98765-4321"
	name := "Maria"
	return &fakeClinicDirectory{clinic: &models.Clinic{
			ID:               uuid.New(),
			Name:             "Clínica Boa Vista",
			WhatsAppInstance: &instance,
		}},
		&fakeLeadDirectory{lead: &models.Lead{
			ID:    uuid.New(),
			Phone: &phone,
			Name:  &name,
		}}
}

func TestDispatchSuccessWritesAuditRow(t *testing.T) {
	clinics, leads := directoryFixtures()
	deliverer := &fakeDeliverer{result: Result{
		Success:      true,
		Attempts:     1,
		Status:       200,
		ResponseBody: "ok",
	}}
	audit := &fakeAuditLog{}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	in := testInput()
	result, err := svc.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Success || result.Attempts != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if deliverer.calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", deliverer.calls)
	}
	if deliverer.lastToken != "signed-token" {
		t.Fatalf("unexpected token %q", deliverer.lastToken)
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.MessageID != in.MessageID || entry.LeadID != in.LeadID || entry.ClinicID != in.ClinicID {
		t.Fatalf("audit row identifiers mismatch: %+v", entry)
	}
	if entry.StatusCode != 200 || entry.AttemptCount != 1 {
		t.Fatalf("unexpected audit outcome: %+v", entry)
	}
	if entry.ResponseBody == nil || *entry.ResponseBody != "ok" {
		t.Fatalf("expected response body recorded, got %v", entry.ResponseBody)
	}
	if entry.ErrorMessage != nil {
		t.Fatalf("expected no error message on success, got %q", *entry.ErrorMessage)
	}
	if entry.WebhookURL != "https://downstream.example/webhook" {
		t.Fatalf("unexpected webhook url %q", entry.WebhookURL)
	}
}

func TestDispatchExhaustionStillWritesAuditRow(t *testing.T) {
	clinics, leads := directoryFixtures()
	deliverer := &fakeDeliverer{result: Result{
		Success:  false,
		Attempts: 3,
		Status:   502,
		Error:    "HTTP 502: downstream unavailable",
	}}
	audit := &fakeAuditLog{}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	result, err := svc.Dispatch(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Dispatch should not error on exhaustion: %v", err)
	}
	if result.Success || result.Attempts != 3 {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.StatusCode != 502 || entry.AttemptCount != 3 {
		t.Fatalf("unexpected audit outcome: %+v", entry)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "HTTP 502: downstream unavailable" {
		t.Fatalf("expected last error recorded, got %v", entry.ErrorMessage)
	}
	if entry.ResponseBody != nil {
		t.Fatalf("expected nil response body on failure")
	}
}

func TestDispatchMissingRoutingKeySkipsDelivery(t *testing.T) {
	clinics, leads := directoryFixtures()
	clinics.clinic.WhatsAppInstance = nil
	deliverer := &fakeDeliverer{}
	audit := &fakeAuditLog{}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	_, err := svc.Dispatch(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected configuration error")
	}
	coded := errs.As(err)
	if coded == nil || coded.Code() != errs.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if deliverer.calls != 0 {
		t.Fatalf("expected zero HTTP call sequences, got %d", deliverer.calls)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit row before delivery, got %d", len(audit.entries))
	}
}

func TestDispatchDirectoryFailure(t *testing.T) {
	clinics, leads := directoryFixtures()
	clinics.clinic = nil
	clinics.err = errors.New("connection refused")
	deliverer := &fakeDeliverer{}
	svc := newTestService(t, clinics, leads, deliverer, &fakeAuditLog{})

	_, err := svc.Dispatch(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected dependency error")
	}
	coded := errs.As(err)
	if coded == nil || coded.Code() != errs.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if deliverer.calls != 0 {
		t.Fatalf("expected no delivery on lookup failure, got %d", deliverer.calls)
	}
}

func TestDispatchMissingClinicKeepsNotFoundClass(t *testing.T) {
	clinics, leads := directoryFixtures()
	clinics.clinic = nil
	clinics.err = errs.New(errs.CodeNotFound, "clinic not found")
	deliverer := &fakeDeliverer{}
	audit := &fakeAuditLog{}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	_, err := svc.Dispatch(context.Background(), testInput())
	if err == nil {
		t.Fatal("expected not found error")
	}
	coded := errs.As(err)
	if coded == nil || coded.Code() != errs.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if deliverer.calls != 0 {
		t.Fatalf("expected no delivery for a deleted clinic, got %d", deliverer.calls)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit row, got %d", len(audit.entries))
	}
}

func TestDispatchAuditFailureDoesNotChangeOutcome(t *testing.T) {
	clinics, leads := directoryFixtures()
	deliverer := &fakeDeliverer{result: Result{Success: true, Attempts: 1, Status: 200}}
	audit := &fakeAuditLog{err: errors.New("audit table unavailable")}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	result, err := svc.Dispatch(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success despite audit failure, got %+v", result)
	}
}

func TestDispatchValidatesInput(t *testing.T) {
	clinics, leads := directoryFixtures()
	svc := newTestService(t, clinics, leads, &fakeDeliverer{}, &fakeAuditLog{})

	in := testInput()
	in.MessageID = uuid.Nil
	if _, err := svc.Dispatch(context.Background(), in); err == nil {
		t.Fatal("expected validation error for missing message id")
	}
}

func TestDispatchIndependentInvocationsProduceIndependentAuditRows(t *testing.T) {
	clinics, leads := directoryFixtures()
	deliverer := &fakeDeliverer{result: Result{Success: true, Attempts: 1, Status: 200}}
	audit := &fakeAuditLog{}
	svc := newTestService(t, clinics, leads, deliverer, audit)

	first := testInput()
	second := testInput()
	if _, err := svc.Dispatch(context.Background(), first); err != nil {
		t.Fatalf("first Dispatch: %v", err)
	}
	if _, err := svc.Dispatch(context.Background(), second); err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}

	if len(audit.entries) != 2 {
		t.Fatalf("expected two audit rows, got %d", len(audit.entries))
	}
	if audit.entries[0].MessageID == audit.entries[1].MessageID {
		t.Fatal("expected distinct message ids per invocation")
	}
}
