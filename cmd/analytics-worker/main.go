package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/router"
	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
	"github.com/angelmondragon/shootpay-backend/internal/analytics/worker"
	"github.com/angelmondragon/shootpay-backend/internal/analytics/writer"
	"github.com/angelmondragon/shootpay-backend/internal/bootstrap"
	"github.com/angelmondragon/shootpay-backend/pkg/bigquery"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/shootpay-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Start("analytics-worker")
	defer proc.Shutdown()
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	redisClient := proc.Redis(ctx)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	proc.Must(ctx, "pubsub", err)
	proc.OnShutdown("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, bigquery.Options{
		Tables: []bigquery.TableSpec{{
			Name:           cfg.BigQuery.EscrowEventsTable,
			Schema:         types.EscrowEventsSchema(),
			PartitionField: types.EscrowEventsPartitionField,
		}},
		CreateMissing: cfg.Eventing.AnalyticsCreateTables && cfg.App.IsDev(),
	}, logg)
	proc.Must(ctx, "bigquery", err)
	proc.OnShutdown("bigquery", bqClient.Close)

	guard, err := idempotency.NewConsumerGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, worker.ConsumerName)
	proc.Must(ctx, "idempotency guard", err)

	rowWriter, err := writer.New(bqClient, writer.Config{EscrowTable: cfg.BigQuery.EscrowEventsTable})
	proc.Must(ctx, "analytics writer", err)

	routingHandler, err := router.NewRouter(rowWriter, logg, nil)
	proc.Must(ctx, "analytics router", err)

	service, err := worker.NewService(worker.ServiceParams{
		Subscription:   pubsubClient.AnalyticsSubscription(),
		Handler:        routingHandler,
		Idempotency:    guard,
		Logger:         logg,
		MaxOutstanding: cfg.Eventing.AnalyticsMaxOutstanding,
	})
	proc.Must(ctx, "analytics worker", err)

	runCtx, stop := proc.SignalContext()
	defer stop()
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must(runCtx, "analytics subscription", err)
	}
	logg.Info(runCtx, "analytics worker shutting down gracefully")
}
