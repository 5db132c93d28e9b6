package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shootpay-backend/api/controllers"
	settlementcontrollers "github.com/angelmondragon/shootpay-backend/api/controllers/settlement"
	webhookcontrollers "github.com/angelmondragon/shootpay-backend/api/controllers/webhooks"
	"github.com/angelmondragon/shootpay-backend/api/middleware"
	"github.com/angelmondragon/shootpay-backend/pkg/auth"
	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/shootpay-backend/pkg/redis"
	"github.com/angelmondragon/shootpay-backend/pkg/square"
	"github.com/angelmondragon/shootpay-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface needs. Webhook routes are
// mounted only for the gateways that are configured.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Settlement  settlementcontrollers.Service
	Idempotency *redis.Client
	Ready       map[string]controllers.Pinger
	Metrics     http.Handler
	HTTPMetrics *metrics.HTTPMetrics

	StripeClient  *stripe.Client
	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeGuard   *idempotency.Guard

	SquareClient  *square.Client
	SquareWebhook webhookcontrollers.SquareWebhookService
	SquareGuard   *idempotency.Guard
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Settlement

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if p.StripeClient != nil && p.StripeWebhook != nil && p.StripeGuard != nil {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.StripeGuard, logg))
		}
		if p.SquareClient != nil && p.SquareWebhook != nil && p.SquareGuard != nil {
			r.Post("/square", webhookcontrollers.SquareWebhook(p.SquareWebhook, p.SquareClient, p.SquareGuard, logg))
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(auth.NewVerifier(cfg.JWT), logg))
		idem := idempotent(p.Idempotency, logg)

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			r.Route("/escrow", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRoleGuest, enums.ActorRoleAdmin), idem(middleware.MoneyIdempotencyTTL)).
					Post("/", settlementcontrollers.CreateEscrow(svc, logg))
				r.Get("/{bookingId}", settlementcontrollers.EscrowStatus(svc, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleGuest), idem(middleware.MoneyIdempotencyTTL)).
					Post("/{bookingId}/confirm", settlementcontrollers.ConfirmReceipt(svc, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin), idem(middleware.MoneyIdempotencyTTL)).
					Post("/{bookingId}/refund", settlementcontrollers.RefundEscrow(svc, logg))
			})

			r.Route("/deliveries", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRolePhotographer), idem(middleware.IdempotencyTTL)).
					Post("/", settlementcontrollers.DeliverPhotos(svc, logg))
				r.Get("/{bookingId}", settlementcontrollers.GetDelivery(svc, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleGuest), idem(middleware.IdempotencyTTL)).
					Post("/{bookingId}/downloads", settlementcontrollers.RegisterDownload(svc, logg))
			})
			r.Get("/delivery-services", settlementcontrollers.DeliveryServices(svc, logg))

			r.Route("/disputes", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.ActorRoleGuest), idem(middleware.IdempotencyTTL)).
					Post("/", settlementcontrollers.CreateDispute(svc, logg))
				r.Get("/{bookingId}", settlementcontrollers.GetDispute(svc, logg))
			})

			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
				Post("/internal/auto-confirm", settlementcontrollers.RunAutoConfirm(svc, logg))
		})
	})

	return r
}

// idempotent returns the per-route Idempotency-Key middleware, or a pass-through when no
// store is configured.
func idempotent(store *redis.Client, logg *logger.Logger) func(time.Duration) func(http.Handler) http.Handler {
	return func(ttl time.Duration) func(http.Handler) http.Handler {
		if store == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.Idempotency(store, logg, ttl)
	}
}
