package gateway

import (
	"context"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/square"
)

const (
	squareCompleted = "COMPLETED"
	squareCanceled  = "CANCELED"
)

type squarePayments interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	CompletePayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// Square places holds as delayed-capture card payments.
type Square struct {
	payments squarePayments
}

var _ escrow.Gateway = (*Square)(nil)

// NewSquare wraps the square payments client.
func NewSquare(payments squarePayments) (*Square, error) {
	if payments == nil {
		return nil, errors.New("square client required")
	}
	return &Square{payments: payments}, nil
}

func (s *Square) Provider() enums.GatewayProvider {
	return enums.GatewaySquare
}

func (s *Square) Authorize(ctx context.Context, req escrow.AuthorizeRequest) (*escrow.Authorization, error) {
	if req.SourceID == nil || strings.TrimSpace(*req.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card source required for square holds")
	}
	params := square.PaymentCreateParams{
		AmountCents:    req.Amount,
		Currency:       req.Currency,
		SourceID:       *req.SourceID,
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    req.Metadata["booking_id"],
		Autocomplete:   false,
	}
	if req.ReceiptEmail != nil {
		params.BuyerEmail = *req.ReceiptEmail
	}
	payment, err := s.payments.CreatePayment(ctx, params)
	if err != nil {
		return nil, asGatewayError(err, "square authorize failed")
	}
	if payment == nil || payment.GetID() == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "square returned no payment id")
	}
	return &escrow.Authorization{HoldRef: *payment.GetID()}, nil
}

// Capture completes the payment. Square completes for the authorized amount, and a
// payment that is already COMPLETED counts as captured.
func (s *Square) Capture(ctx context.Context, req escrow.CaptureRequest) error {
	if _, err := s.payments.CompletePayment(ctx, req.HoldRef); err != nil {
		if s.inStatus(ctx, req.HoldRef, squareCompleted) {
			return nil
		}
		return asGatewayError(err, "square capture failed")
	}
	return nil
}

func (s *Square) Cancel(ctx context.Context, holdRef, _ string) error {
	if _, err := s.payments.CancelPayment(ctx, holdRef); err != nil {
		if s.inStatus(ctx, holdRef, squareCanceled) {
			return nil
		}
		return asGatewayError(err, "square cancel failed")
	}
	return nil
}

func (s *Square) inStatus(ctx context.Context, paymentID, want string) bool {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil || payment == nil || payment.GetStatus() == nil {
		return false
	}
	return strings.EqualFold(*payment.GetStatus(), want)
}

// asGatewayError keeps validation failures as-is and reports everything else as a gateway error.
func asGatewayError(err error, message string) error {
	if pkgerrors.Is(err, pkgerrors.CodeValidation) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, message)
}
