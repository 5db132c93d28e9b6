package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shootpay-backend/internal/bootstrap"
	"github.com/angelmondragon/shootpay-backend/internal/cron"
	"github.com/angelmondragon/shootpay-backend/internal/gateway"
	"github.com/angelmondragon/shootpay-backend/internal/settlement"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

func main() {
	proc := bootstrap.Start("cron-worker")
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

	autoConfirmJob, err := cron.NewAutoConfirmJob(cron.AutoConfirmJobParams{
		Logger:  logg,
		Sweeper: core.Escrow,
	})
	proc.Must(ctx, "auto-confirm job", err)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Events:       outbox.NewRepository(dbClient.DB()),
		DeadLetters:  outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Outbox.RetentionWindow,
		DLQRetention: cfg.Outbox.DLQRetention,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	})
	proc.Must(ctx, "outbox retention job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envName(cfg.App.Env)), cfg.Cron.LockTTL)
	proc.Must(ctx, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{autoConfirmJob, retentionJob},
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	proc.Must(ctx, "cron service", err)

	runCtx, stop := proc.SignalContext()
	defer stop()
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must(runCtx, "cron service", err)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
