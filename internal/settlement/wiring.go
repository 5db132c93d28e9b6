package settlement

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/bookings"
	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/disputes"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	"github.com/angelmondragon/shootpay-backend/pkg/config"
	dbpkg "github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

// Dependencies is what a binary hands over to assemble the settlement core.
type Dependencies struct {
	DB      *gorm.DB
	Gateway escrow.Gateway
	Cache   *StatusCache
	Escrow  config.EscrowConfig
	Logger  *logger.Logger
	Metrics *metrics.EscrowMetrics
}

// Components are the assembled services. Escrow is exposed for the sweep job.
type Components struct {
	Service *Service
	Escrow  escrow.Service
}

// Build assembles escrow, delivery and disputes over one database and wires
// cache invalidation into every transition.
func Build(deps Dependencies) (*Components, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database required")
	}

	tx := dbpkg.Wrap(deps.DB)
	events := outbox.NewService(outbox.NewRepository(deps.DB), deps.Logger)
	synchronizer, err := bookings.NewSynchronizer(bookings.NewRepository(deps.DB))
	if err != nil {
		return nil, err
	}
	deliveryRepo := delivery.NewRepository(deps.DB)
	onChange := deps.Cache.Invalidate

	escrowSvc, err := escrow.NewService(escrow.ServiceParams{
		Repo:          escrow.NewRepository(deps.DB),
		Tx:            tx,
		Outbox:        events,
		Gateway:       deps.Gateway,
		Bookings:      synchronizer,
		Reviews:       reviews.NewRepository(deps.DB),
		Deliveries:    delivery.NewConfirmer(deliveryRepo),
		Settings:      escrow.SettingsFromConfig(deps.Escrow),
		Logger:        deps.Logger,
		Metrics:       deps.Metrics,
		OnStateChange: onChange,
	})
	if err != nil {
		return nil, err
	}

	deliverySvc, err := delivery.NewService(delivery.ServiceParams{
		Repo:     deliveryRepo,
		Tx:       tx,
		Outbox:   events,
		Escrow:   escrowSvc,
		Bookings: synchronizer,
		Settings: delivery.Settings{
			DownloadWindow: time.Duration(deps.Escrow.DownloadWindowDays) * 24 * time.Hour,
			MaxDownloads:   deps.Escrow.MaxDownloads,
		},
		Logger:        deps.Logger,
		OnStateChange: onChange,
	})
	if err != nil {
		return nil, err
	}

	disputeSvc, err := disputes.NewService(disputes.ServiceParams{
		Repo:          disputes.NewRepository(deps.DB),
		Tx:            tx,
		Outbox:        events,
		Escrow:        escrowSvc,
		Logger:        deps.Logger,
		OnStateChange: onChange,
	})
	if err != nil {
		return nil, err
	}

	svc, err := NewService(ServiceParams{
		Escrow:   escrowSvc,
		Delivery: deliverySvc,
		Disputes: disputeSvc,
		Cache:    deps.Cache,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Components{Service: svc, Escrow: escrowSvc}, nil
}
