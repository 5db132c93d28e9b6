package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/shootpay-backend/internal/bootstrap"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/registry"
	"github.com/angelmondragon/shootpay-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	defer proc.Shutdown()
	cfg, logg := proc.Config, proc.Logger
	ctx := context.Background()

	dbClient := proc.Database(ctx)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RolePublisher, logg)
	proc.Must(ctx, "pubsub", err)
	proc.OnShutdown("pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must(ctx, "event registry", err)

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	proc.Must(ctx, "outbox publisher", err)

	runCtx, stop := proc.SignalContext()
	defer stop()
	logg.Info(runCtx, "starting outbox publisher")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Must(runCtx, "outbox relay", err)
	}
	logg.Info(runCtx, "outbox publisher shutting down gracefully")
}
