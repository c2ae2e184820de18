package leads

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/db/models"
	"github.com/clinicore/clinicore-backend/pkg/enums"
	errs "github.com/clinicore/clinicore-backend/pkg/errors"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/outbox/payloads"
)

type txRunner struct {
	db *gorm.DB
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupLeadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS stages (
  id TEXT PRIMARY KEY,
  clinic_id TEXT NOT NULL,
  name TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  clinic_id TEXT NOT NULL,
  stage_id TEXT,
  name TEXT,
  phone TEXT,
  email TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate
  ON outbox_events (event_type, aggregate_type, aggregate_id)
  WHERE published_at IS NULL;`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newLeadsService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	logg := logger.New(logger.Options{
		ServiceName: "leads-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
	svc, err := NewService(txRunner{db: db}, NewRepository(db), outbox.NewService(outbox.NewRepository(db), logg), logg)
	require.NoError(t, err)
	return svc
}

func seedPipeline(t *testing.T, db *gorm.DB, clinicID uuid.UUID) (*models.Lead, *models.Stage, *models.Stage) {
	t.Helper()

	from := &models.Stage{ID: uuid.New(), ClinicID: clinicID, Name: "Novo", Position: 0}
	to := &models.Stage{ID: uuid.New(), ClinicID: clinicID, Name: "Agendado", Position: 1}
	require.NoError(t, db.Create(from).Error)
	require.NoError(t, db.Create(to).Error)

	lead := &models.Lead{ID: uuid.New(), ClinicID: clinicID, StageID: &from.ID}
	require.NoError(t, db.Create(lead).Error)
	return lead, from, to
}

func TestMoveStageUpdatesLeadAndEmitsEvent(t *testing.T) {
	db := setupLeadsTestDB(t)
	clinicID := uuid.New()
	lead, from, to := seedPipeline(t, db, clinicID)
	svc := newLeadsService(t, db)

	require.NoError(t, svc.MoveStage(context.Background(), clinicID, lead.ID, to.ID))

	var stored models.Lead
	require.NoError(t, db.Where("id = ?", lead.ID).First(&stored).Error)
	require.NotNil(t, stored.StageID)
	assert.Equal(t, to.ID, *stored.StageID)

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventLeadStageChanged, events[0].EventType)
	assert.Equal(t, enums.AggregateLead, events[0].AggregateType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload payloads.LeadStageChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, lead.ID, payload.LeadID)
	require.NotNil(t, payload.FromStageID)
	assert.Equal(t, from.ID, *payload.FromStageID)
	assert.Equal(t, to.ID, payload.ToStageID)
}

func TestMoveStageRejectsForeignStage(t *testing.T) {
	db := setupLeadsTestDB(t)
	clinicID := uuid.New()
	lead, _, _ := seedPipeline(t, db, clinicID)

	foreign := &models.Stage{ID: uuid.New(), ClinicID: uuid.New(), Name: "Outro"}
	require.NoError(t, db.Create(foreign).Error)

	svc := newLeadsService(t, db)
	err := svc.MoveStage(context.Background(), clinicID, lead.ID, foreign.ID)
	require.Error(t, err)
	coded := errs.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, errs.CodeValidation, coded.Code())

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMoveStageNoopWhenAlreadyThere(t *testing.T) {
	db := setupLeadsTestDB(t)
	clinicID := uuid.New()
	lead, from, _ := seedPipeline(t, db, clinicID)
	svc := newLeadsService(t, db)

	require.NoError(t, svc.MoveStage(context.Background(), clinicID, lead.ID, from.ID))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMoveStageTwiceBeforePublishKeepsSingleEvent(t *testing.T) {
	db := setupLeadsTestDB(t)
	clinicID := uuid.New()
	lead, _, to := seedPipeline(t, db, clinicID)

	third := &models.Stage{ID: uuid.New(), ClinicID: clinicID, Name: "Compareceu", Position: 2}
	require.NoError(t, db.Create(third).Error)

	svc := newLeadsService(t, db)

	require.NoError(t, svc.MoveStage(context.Background(), clinicID, lead.ID, to.ID))
	// The first event has not been published yet, so the partial unique
	// index still covers this aggregate.
	require.NoError(t, svc.MoveStage(context.Background(), clinicID, lead.ID, third.ID))

	var stored models.Lead
	require.NoError(t, db.Where("id = ?", lead.ID).First(&stored).Error)
	require.NotNil(t, stored.StageID)
	assert.Equal(t, third.ID, *stored.StageID)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMoveStageUnknownLead(t *testing.T) {
	db := setupLeadsTestDB(t)
	svc := newLeadsService(t, db)

	err := svc.MoveStage(context.Background(), uuid.New(), uuid.New(), uuid.New())
	require.Error(t, err)
	coded := errs.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, errs.CodeNotFound, coded.Code())
}
