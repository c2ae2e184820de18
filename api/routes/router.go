package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore-backend/api/controllers"
	webhookcontrollers "github.com/clinicore/clinicore-backend/api/controllers/webhooks"
	"github.com/clinicore/clinicore-backend/api/middleware"
	stripewebhook "github.com/clinicore/clinicore-backend/internal/webhooks/stripe"
	"github.com/clinicore/clinicore-backend/pkg/config"
	"github.com/clinicore/clinicore-backend/pkg/db"
	"github.com/clinicore/clinicore-backend/pkg/logger"
	"github.com/clinicore/clinicore-backend/pkg/redis"
	"github.com/clinicore/clinicore-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	messageService controllers.MessageService,
	messageFinder controllers.MessageFinder,
	dispatcher controllers.Dispatcher,
	leadService controllers.LeadStageMover,
	deliveryLog controllers.DeliveryLister,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", controllers.CreateMessage(messageService, logg))
			r.Post("/{messageId}/dispatch", controllers.DispatchMessage(messageFinder, dispatcher, logg))
			r.Get("/{messageId}/deliveries", controllers.ListMessageDeliveries(deliveryLog, logg))
		})
		r.Post("/leads/{leadId}/stage", controllers.MoveLeadStage(leadService, logg))
		r.Get("/deliveries", controllers.ListDeliveries(deliveryLog, logg))
	})

	return r
}
