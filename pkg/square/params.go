package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

const defaultCurrency = "USD"

// PaymentCreateParams describes a card payment. Holds leave Autocomplete false so the
// funds stay authorized until CompletePayment or CancelPayment.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	BuyerEmail     string
	Note           string
	ReferenceID    string
	Autocomplete   bool
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	autocomplete := p.Autocomplete
	req := &sq.CreatePaymentRequest{
		IdempotencyKey:    idempotencyKey,
		SourceID:          p.SourceID,
		Autocomplete:      &autocomplete,
		LocationID:        optional(p.LocationID),
		BuyerEmailAddress: optional(p.BuyerEmail),
		Note:              optional(p.Note),
		ReferenceID:       optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		amount := p.AmountCents
		currency := sq.Currency(currencyCode(p.Currency))
		req.AmountMoney = &sq.Money{Amount: &amount, Currency: &currency}
	}
	return req
}

// optional trims value and returns nil when nothing is left.
func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func currencyCode(code string) string {
	if trimmed := strings.ToUpper(strings.TrimSpace(code)); trimmed != "" {
		return trimmed
	}
	return defaultCurrency
}
