package escrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
)

// Outcome is the non-error result of a guest confirmation.
type Outcome string

const (
	OutcomeCompleted        Outcome = "COMPLETED"
	OutcomeDisputed         Outcome = "DISPUTED"
	OutcomeAlreadyProcessed Outcome = "ALREADY_PROCESSED"
)

// Actor identifies who invoked an operation; ID is uuid.Nil for unauthenticated callers.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// CreateHoldInput opens the escrow for a booking.
type CreateHoldInput struct {
	BookingID    uuid.UUID
	GuestContact *string
	// SourceID carries a card token for gateways that authorize server side.
	SourceID *string
	Actor    Actor
}

// HoldResult is the freshly persisted PENDING escrow plus the secret the guest's client
// needs to complete authorization.
type HoldResult struct {
	Payment      *models.EscrowPayment
	ClientSecret string
}

// ConfirmReceiptInput is the guest's answer to a delivery.
type ConfirmReceiptInput struct {
	BookingID uuid.UUID
	Actor     Actor
	Satisfied bool
	Review    *reviews.Input
	Issues    []string
}

// ReceiptResult reports how a confirmation settled.
type ReceiptResult struct {
	BookingID    uuid.UUID
	Outcome      Outcome
	Payment      *models.EscrowPayment
	Review       *models.Review
	CapturedAt   *time.Time
	DisputeNotes *string
}

// FreezeInput freezes an escrow under dispute.
type FreezeInput struct {
	BookingID uuid.UUID
	Reason    string
	Actor     Actor
}

// RefundInput releases a hold back to the guest.
type RefundInput struct {
	BookingID uuid.UUID
	Reason    string
	Actor     Actor
}

// SweepFailure is one row the sweep could not complete.
type SweepFailure struct {
	EscrowPaymentID uuid.UUID `json:"escrow_payment_id"`
	BookingID       uuid.UUID `json:"booking_id"`
	Code            string    `json:"code"`
	Message         string    `json:"message"`
}

// SweepResult summarizes one sweep over all due rows.
type SweepResult struct {
	Selected       int            `json:"selected"`
	Pages          int            `json:"pages"`
	ProcessedCount int            `json:"processed_count"`
	Skipped        int            `json:"skipped"`
	Failures       []SweepFailure `json:"failures"`
}
