package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

func TestFromConfigFakeOutsideProd(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}, Escrow: config.EscrowConfig{Gateway: "fake"}}

	provider, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.GatewayFake, provider.Name)
	assert.IsType(t, &Fake{}, provider.Gateway)
	assert.Nil(t, provider.Stripe)
	assert.Nil(t, provider.Square)
}

func TestFromConfigRefusesFakeInProd(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "prod"}, Escrow: config.EscrowConfig{Gateway: "fake"}}

	_, err := FromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestFromConfigUnknownProvider(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}, Escrow: config.EscrowConfig{Gateway: "paypal"}}

	_, err := FromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestFromConfigStripeNeedsCredentials(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}, Escrow: config.EscrowConfig{Gateway: "stripe"}}

	_, err := FromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
}
