package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplit(t *testing.T) {
	split, err := NewSplit(10000, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), split.PhotographerEarnings)

	_, err = NewSplit(0, 0)
	require.Error(t, err)
	_, err = NewSplit(100, 101)
	require.Error(t, err)
	_, err = NewSplit(100, -1)
	require.Error(t, err)
}

func TestSplitByRateRoundsHalfUp(t *testing.T) {
	split, err := SplitByRate(10005, decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), split.PlatformFee)
	assert.Equal(t, int64(9004), split.PhotographerEarnings)

	split, err = SplitByRate(10000, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.PlatformFee)

	_, err = SplitByRate(10000, decimal.RequireFromString("1.5"))
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "100.00 USD", Format(10000, "usd"))
	assert.Equal(t, "0.05 EUR", Format(5, "eur"))
}
