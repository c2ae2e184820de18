package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clinicore/clinicore-backend/pkg/logger"
)

const deliveryRetentionDays = 90

type DeliveryRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository deliveryRetentionRepo
	Retention  int
}

type deliveryRetentionRepo interface {
	DeleteCreatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewDeliveryRetentionJob(params DeliveryRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = deliveryRetentionDays
	}
	return &deliveryRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type deliveryRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      deliveryRetentionRepo
	retention int
	now       func() time.Time
}

func (j *deliveryRetentionJob) Name() string { return "delivery-retention" }

func (j *deliveryRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteCreatedBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("delivery retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "delivery log cleanup complete")
	return nil
}
