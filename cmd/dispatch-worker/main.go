package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	// Embed the timezone database so containers without tzdata can still
	// resolve America/Sao_Paulo for outbound payloads.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicore/clinicore-backend/internal/audit"
	"github.com/clinicore/clinicore-backend/internal/clinics"
	"github.com/clinicore/clinicore-backend/internal/dispatch"
	"github.com/clinicore/clinicore-backend/internal/leads"
	"github.com/clinicore/clinicore-backend/pkg/config"
	"github.com/clinicore/clinicore-backend/pkg/db"
	"github.com/clinicore/clinicore-backend/pkg/instance"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/metrics"
	"github.com/clinicore/clinicore-backend/pkg/outbox/idempotency"
	"github.com/clinicore/clinicore-backend/pkg/pubsub"
	"github.com/clinicore/clinicore-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "dispatch-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "dispatch-worker"

	logg = logger.New(logger.Options{
		ServiceName: "dispatch-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	signer, err := dispatch.NewSigner(cfg.Dispatch.SigningSecret, cfg.Dispatch.TokenTTL)
	requireResource(ctx, logg, "token signer", err)

	deliverer, err := dispatch.NewDeliverer(cfg.Dispatch.WebhookURL, &http.Client{
		Timeout: cfg.Dispatch.RequestTimeout,
	})
	requireResource(ctx, logg, "webhook deliverer", err)

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	service, err := dispatch.NewService(
		clinics.NewRepository(dbClient.DB()),
		leads.NewRepository(dbClient.DB()),
		signer,
		deliverer,
		audit.NewRepository(dbClient.DB()),
		logg,
		dispatchMetrics,
		dispatch.ConsumerName,
	)
	requireResource(ctx, logg, "dispatch service", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := dispatch.NewConsumer(service, pubsubClient.MessageSubscription(), manager, logg)
	requireResource(ctx, logg, "dispatch consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "dispatch worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "dispatch worker not working", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "dispatch worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
