package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/shootpay-backend/pkg/stripe"
)

// Stripe places holds as manual-capture PaymentIntents.
type Stripe struct {
	intents pkgstripe.PaymentIntentAPI
	logg    *logger.Logger
}

var _ escrow.Gateway = (*Stripe)(nil)

// NewStripe wraps the payment intent API.
func NewStripe(intents pkgstripe.PaymentIntentAPI, logg *logger.Logger) (*Stripe, error) {
	if intents == nil {
		return nil, errors.New("stripe payment intents client required")
	}
	return &Stripe{intents: intents, logg: logg}, nil
}

func (s *Stripe) Provider() enums.GatewayProvider {
	return enums.GatewayStripe
}

func (s *Stripe) Authorize(ctx context.Context, req escrow.AuthorizeRequest) (*escrow.Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	if req.SourceID != nil {
		params.PaymentMethod = stripe.String(*req.SourceID)
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.Confirm = stripe.Bool(true)
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{Enabled: stripe.Bool(true)}
	}
	if req.ReceiptEmail != nil {
		params.ReceiptEmail = stripe.String(*req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	intent, err := s.intents.New(params)
	if err != nil {
		return nil, stripeError("authorize", err)
	}
	return &escrow.Authorization{HoldRef: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Capture treats an intent that already succeeded as captured so a retry after an
// ambiguous failure does not surface as an error.
func (s *Stripe) Capture(ctx context.Context, req escrow.CaptureRequest) error {
	params := &stripe.PaymentIntentCaptureParams{AmountToCapture: stripe.Int64(req.Amount)}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	if _, err := s.intents.Capture(req.HoldRef, params); err != nil {
		if s.inStatus(ctx, req.HoldRef, err, stripe.PaymentIntentStatusSucceeded) {
			return nil
		}
		return stripeError("capture", err)
	}
	return nil
}

func (s *Stripe) Cancel(ctx context.Context, holdRef, idempotencyKey string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	if _, err := s.intents.Cancel(holdRef, params); err != nil {
		if s.inStatus(ctx, holdRef, err, stripe.PaymentIntentStatusCanceled) {
			return nil
		}
		return stripeError("cancel", err)
	}
	return nil
}

func (s *Stripe) inStatus(ctx context.Context, holdRef string, cause error, want stripe.PaymentIntentStatus) bool {
	var stripeErr *stripe.Error
	if !errors.As(cause, &stripeErr) || stripeErr.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
		return false
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := s.intents.Get(holdRef, params)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "hold_ref", holdRef), "stripe intent lookup failed")
		}
		return false
	}
	return intent.Status == want
}

func stripeError(op string, err error) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeGateway, err, fmt.Sprintf("stripe %s failed", op))
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return wrapped.WithDetails(map[string]string{
			"gateway_code": string(stripeErr.Code),
			"decline_code": string(stripeErr.DeclineCode),
		})
	}
	return wrapped
}
