// Package money holds minor-unit arithmetic for settlement amounts.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Split is how a booking total divides between the platform and the photographer.
type Split struct {
	Total                int64
	PlatformFee          int64
	PhotographerEarnings int64
}

// NewSplit validates an explicit fee against the total.
func NewSplit(total, fee int64) (Split, error) {
	if total <= 0 {
		return Split{}, fmt.Errorf("total must be positive, got %d", total)
	}
	if fee < 0 || fee > total {
		return Split{}, fmt.Errorf("platform fee %d outside [0, %d]", fee, total)
	}
	return Split{Total: total, PlatformFee: fee, PhotographerEarnings: total - fee}, nil
}

// SplitByRate derives the platform fee from a rate, rounding half-up to the minor unit.
func SplitByRate(total int64, rate decimal.Decimal) (Split, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Split{}, fmt.Errorf("fee rate %s outside [0, 1]", rate.String())
	}
	fee := decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
	return NewSplit(total, fee)
}

// Format renders minor units as a decimal string, e.g. 10000 usd -> "100.00 USD".
func Format(amount int64, currency string) string {
	return fmt.Sprintf("%s %s", decimal.New(amount, -2).StringFixed(2), strings.ToUpper(currency))
}
