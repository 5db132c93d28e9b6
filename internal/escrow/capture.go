package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
)

type completion struct {
	path   string
	at     time.Time
	actor  *Actor
	review *reviews.Input
}

// complete runs claim, capture, then the conditional ESCROWED->COMPLETED write.
// Only the caller that wins the claim reaches the gateway.
func (s *service) complete(ctx context.Context, payment *models.EscrowPayment, c completion) (*ReceiptResult, error) {
	claimID := uuid.New()
	claimedAt := s.now()
	staleBefore := claimedAt.Add(-s.settings.ClaimTTL)
	delivered := enums.DeliveryStatusDelivered
	guard := Guard{
		Statuses:         []enums.EscrowStatus{enums.EscrowStatusEscrowed},
		DeliveryStatus:   &delivered,
		ClaimStaleBefore: &staleBefore,
	}
	if c.path == metrics.CapturePathSweep {
		guard.AutoConfirmDueBy = &c.at
	}

	claimed, err := s.repo.ConditionalUpdate(ctx, payment.ID, guard, map[string]any{
		"capture_claim_id":   claimID,
		"capture_claimed_at": claimedAt,
	})
	if err != nil {
		s.logFailure(ctx, "capture_claim", payment.BookingID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim escrow for capture")
	}
	if !claimed {
		return s.alreadyProcessed(ctx, payment.BookingID), nil
	}

	err = s.gateway.Capture(ctx, CaptureRequest{
		HoldRef:        payment.GatewayHoldRef,
		Amount:         payment.TotalAmount,
		IdempotencyKey: captureKey(payment.GatewayHoldRef),
	})
	s.metrics.IncCapture(c.path, err == nil)
	if err != nil {
		s.releaseClaim(ctx, payment, claimID)
		s.logFailure(ctx, "capture", payment.BookingID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "capture hold")
	}

	completedAt := c.at
	if c.path == metrics.CapturePathGuest {
		completedAt = s.now()
	}
	var review *models.Review
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).ConditionalUpdate(ctx, payment.ID,
			Guard{Statuses: []enums.EscrowStatus{enums.EscrowStatusEscrowed}, ClaimedBy: &claimID},
			map[string]any{
				"escrow_status":      enums.EscrowStatusCompleted,
				"delivery_status":    enums.DeliveryStatusConfirmed,
				"confirmed_at":       completedAt,
				"completed_at":       completedAt,
				"capture_claim_id":   nil,
				"capture_claimed_at": nil,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow completed")
		}
		if !ok {
			return errLostRace
		}
		if s.deliveries != nil {
			if err := s.deliveries.MarkConfirmedTx(ctx, tx, payment.BookingID, completedAt); err != nil {
				return err
			}
		}
		if c.review != nil && c.actor != nil {
			review = c.review.Build(payment.BookingID, c.actor.ID, payment.PhotographerID)
			if err := s.reviews.WithTx(tx).Create(ctx, review); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
			}
		}
		if err := s.bookings.MarkCompletedTx(ctx, tx, payment.BookingID); err != nil {
			return err
		}

		payment.EscrowStatus = enums.EscrowStatusCompleted
		payment.DeliveryStatus = enums.DeliveryStatusConfirmed
		payment.ConfirmedAt = &completedAt
		payment.CompletedAt = &completedAt
		payment.CaptureClaimID = nil
		payment.CaptureClaimedAt = nil
		actor := Actor{}
		if c.actor != nil {
			actor = *c.actor
		}
		return s.emit(ctx, tx, enums.EventEscrowCompleted, payment, enums.EscrowStatusEscrowed, actorRef(actor), c.path)
	})
	if errors.Is(err, errLostRace) {
		// Our claim went stale and another path settled the row; the shared
		// idempotency key kept the gateway from capturing twice.
		return s.alreadyProcessed(ctx, payment.BookingID), nil
	}
	if err != nil {
		// Funds are captured but the row is still claimed; once the claim goes
		// stale a retry repeats the capture under the same idempotency key.
		s.logFailure(ctx, "complete", payment.BookingID, err)
		return nil, err
	}

	s.metrics.IncTransition(string(enums.EscrowStatusCompleted))
	s.notify(ctx, payment.BookingID)
	return &ReceiptResult{
		BookingID:  payment.BookingID,
		Outcome:    OutcomeCompleted,
		Payment:    payment,
		Review:     review,
		CapturedAt: &completedAt,
	}, nil
}

// releaseClaim drops a claim after a failed gateway call so the row stays retryable.
func (s *service) releaseClaim(ctx context.Context, payment *models.EscrowPayment, claimID uuid.UUID) {
	_, err := s.repo.ConditionalUpdate(ctx, payment.ID, Guard{ClaimedBy: &claimID}, map[string]any{
		"capture_claim_id":   nil,
		"capture_claimed_at": nil,
	})
	if err != nil {
		s.logFailure(ctx, "release_claim", payment.BookingID, err)
	}
}

func (s *service) alreadyProcessed(ctx context.Context, bookingID uuid.UUID) *ReceiptResult {
	result := &ReceiptResult{BookingID: bookingID, Outcome: OutcomeAlreadyProcessed}
	if current, err := s.repo.FindByBookingID(ctx, bookingID); err == nil {
		result.Payment = current
	}
	return result
}
