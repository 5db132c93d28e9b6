package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shootpay-backend/api/controllers"
	"github.com/angelmondragon/shootpay-backend/api/routes"
	"github.com/angelmondragon/shootpay-backend/internal/bootstrap"
	"github.com/angelmondragon/shootpay-backend/internal/gateway"
	"github.com/angelmondragon/shootpay-backend/internal/settlement"
	squarewebhook "github.com/angelmondragon/shootpay-backend/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/shootpay-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/shootpay-backend/pkg/redis"
)

const (
	webhookEventTTL = 72 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	proc := bootstrap.Start("api")
	defer proc.Shutdown()
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)
	redisClient := proc.Redis(ctx)

	provider, err := gateway.FromConfig(ctx, cfg, logg)
	proc.Must(ctx, "payment gateway", err)

	core, err := settlement.Build(settlement.Dependencies{
		DB:      dbClient.DB(),
		Gateway: provider.Gateway,
		Cache:   settlement.NewStatusCache(redisClient, cfg.Escrow.StatusCacheTTL, logg),
		Escrow:  cfg.Escrow,
		Logger:  logg,
		Metrics: metrics.NewEscrowMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must(ctx, "settlement core", err)

	params := routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		Settlement:  core.Service,
		Idempotency: redisClient,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Metrics:     promhttp.Handler(),
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
	}
	proc.Must(ctx, "gateway webhooks", wireWebhooks(&params, provider, core.Service, redisClient, logg))

	addr := ":" + firstNonEmpty(os.Getenv("PORT"), cfg.App.Port)
	runCtx, stop := proc.SignalContext()
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"addr":     addr,
		"instance": firstNonEmpty(os.Getenv("DYNO"), "local"),
		"gateway":  provider.Name.String(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}
	proc.Must(runCtx, "http server", serve(runCtx, server, logg))
}

// serve runs server until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logg *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logg.Info(ctx, "starting api server")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// wireWebhooks mounts the webhook endpoint of the configured gateway only.
func wireWebhooks(params *routes.RouterParams, provider *gateway.Provider, svc *settlement.Service, store redis.IdempotencyStore, logg *logger.Logger) error {
	switch {
	case provider.Stripe != nil:
		handler, err := stripewebhook.NewService(stripewebhook.ServiceParams{Settlement: svc, Logger: logg})
		if err != nil {
			return err
		}
		guard, err := idempotency.NewGuard(store, webhookEventTTL, "stripe-webhook")
		if err != nil {
			return err
		}
		params.StripeClient, params.StripeWebhook, params.StripeGuard = provider.Stripe, handler, guard
	case provider.Square != nil:
		handler, err := squarewebhook.NewService(squarewebhook.ServiceParams{Settlement: svc, Logger: logg})
		if err != nil {
			return err
		}
		guard, err := idempotency.NewGuard(store, webhookEventTTL, "square-webhook")
		if err != nil {
			return err
		}
		params.SquareClient, params.SquareWebhook, params.SquareGuard = provider.Square, handler, guard
	}
	return nil
}
