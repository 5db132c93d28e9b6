package gateway

import (
	"context"
	"fmt"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/square"
	pkgstripe "github.com/angelmondragon/shootpay-backend/pkg/stripe"
)

// Provider is the configured gateway plus the raw client behind it. Only the
// client of the selected provider is set; webhook verification reads it.
type Provider struct {
	Name    enums.GatewayProvider
	Gateway escrow.Gateway
	Stripe  *pkgstripe.Client
	Square  *square.Client
}

// FromConfig builds the gateway named by SHOOTPAY_ESCROW_GATEWAY. The fake gateway is refused in prod.
func FromConfig(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Provider, error) {
	provider, err := enums.ParseGatewayProvider(cfg.Escrow.Gateway)
	if err != nil {
		return nil, err
	}
	switch provider {
	case enums.GatewayStripe:
		client, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, fmt.Errorf("stripe client: %w", err)
		}
		gw, err := NewStripe(client.PaymentIntents(), logg)
		if err != nil {
			return nil, err
		}
		return &Provider{Name: provider, Gateway: gw, Stripe: client}, nil
	case enums.GatewaySquare:
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, fmt.Errorf("square client: %w", err)
		}
		gw, err := NewSquare(client)
		if err != nil {
			return nil, err
		}
		return &Provider{Name: provider, Gateway: gw, Square: client}, nil
	default:
		if cfg.App.IsProd() {
			return nil, fmt.Errorf("gateway %q is not allowed in prod", provider)
		}
		return &Provider{Name: provider, Gateway: NewFake()}, nil
	}
}
