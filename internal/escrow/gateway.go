package escrow

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// Gateway holds funds in manual-capture mode and later captures or releases them.
// Implementations must honour IdempotencyKey so a retried call never moves money twice.
type Gateway interface {
	Provider() enums.GatewayProvider
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	Capture(ctx context.Context, req CaptureRequest) error
	Cancel(ctx context.Context, holdRef, idempotencyKey string) error
}

// AuthorizeRequest asks the gateway to place a hold for the booking total.
type AuthorizeRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	ReceiptEmail   *string
	// SourceID is a tokenized card for gateways that authorize server side.
	SourceID *string
	Metadata map[string]string
}

// Authorization is what the gateway hands back for a new hold. ClientSecret is only
// relayed to the guest's client and never persisted.
type Authorization struct {
	HoldRef      string
	ClientSecret string
}

// CaptureRequest captures a previously authorized hold in full.
type CaptureRequest struct {
	HoldRef        string
	Amount         int64
	IdempotencyKey string
}

func holdKey(bookingID uuid.UUID) string {
	return "hold-" + bookingID.String()
}

func captureKey(holdRef string) string {
	return "capture-" + holdRef
}

func cancelKey(holdRef string) string {
	return "cancel-" + holdRef
}
