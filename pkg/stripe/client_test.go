package stripe

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "rk_test_123", Secret: "whsec", Env: "live"}, nil)
	require.ErrorContains(t, err, "sk_live/rk_live")

	_, err = NewClient(ctx, config.StripeConfig{Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec", Env: "staging"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNewClientExposesPaymentIntents(t *testing.T) {
	c, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:            "rk_test_123",
		Secret:            " whsec ",
		MaxNetworkRetries: 2,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, testEnv, c.Environment())
	assert.Equal(t, "whsec", c.SigningSecret())
	assert.NotNil(t, c.PaymentIntents())

	var nilClient *Client
	assert.Nil(t, nilClient.PaymentIntents())
	assert.Empty(t, nilClient.SigningSecret())
}

func TestLeveledLoggerRoutesToStructuredLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLeveledLogger(context.Background(), logger.New(logger.Options{ServiceName: "api", Output: buf}))

	l.Infof("request %s", "req_1")
	assert.Empty(t, buf.String())

	l.Warnf("retrying %d", 1)
	assert.Contains(t, buf.String(), "retrying 1")
	assert.Contains(t, buf.String(), "stripe-sdk")
}
