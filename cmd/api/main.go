package main

import (
	"context"
	"net/http"
	"os"

	// Embed the timezone database so containers without tzdata can still
	// resolve America/Sao_Paulo for outbound payloads.
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/clinicore/clinicore-backend/api/routes"
	"github.com/clinicore/clinicore-backend/internal/audit"
	"github.com/clinicore/clinicore-backend/internal/clinics"
	"github.com/clinicore/clinicore-backend/internal/dispatch"
	"github.com/clinicore/clinicore-backend/internal/leads"
	"github.com/clinicore/clinicore-backend/internal/messages"
	"github.com/clinicore/clinicore-backend/internal/subscriptions"
	stripewebhook "github.com/clinicore/clinicore-backend/internal/webhooks/stripe"
	"github.com/clinicore/clinicore-backend/pkg/config"
	"github.com/clinicore/clinicore-backend/pkg/db"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/migrate"
	"github.com/clinicore/clinicore-backend/pkg/outbox"
	"github.com/clinicore/clinicore-backend/pkg/redis"
	"github.com/clinicore/clinicore-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	clinicRepo := clinics.NewRepository(dbClient.DB())
	leadRepo := leads.NewRepository(dbClient.DB())
	messageRepo := messages.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	messageService, err := messages.NewService(dbClient, messageRepo, leadRepo, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create message service", err)
		os.Exit(1)
	}

	leadService, err := leads.NewService(dbClient, leadRepo, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lead service", err)
		os.Exit(1)
	}

	signer, err := dispatch.NewSigner(cfg.Dispatch.SigningSecret, cfg.Dispatch.TokenTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create token signer", err)
		os.Exit(1)
	}
	deliverer, err := dispatch.NewDeliverer(cfg.Dispatch.WebhookURL, &http.Client{Timeout: cfg.Dispatch.RequestTimeout})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook deliverer", err)
		os.Exit(1)
	}
	dispatchService, err := dispatch.NewService(clinicRepo, leadRepo, signer, deliverer, auditRepo, logg, nil, "api")
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		SubscriptionRepo:  subscriptions.NewRepository(dbClient.DB()),
		ClinicRepo:        clinicRepo,
		StripeClient:      subscriptions.NewStripeClient(stripeClient),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			messageService,
			messageRepo,
			dispatchService,
			leadService,
			auditRepo,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
