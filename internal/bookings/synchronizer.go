package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
)

// Synchronizer mirrors escrow and delivery progress onto the booking and its originating request.
// Every Mark*Tx method must run inside the caller's transaction.
type Synchronizer struct {
	repo Repository
}

// NewSynchronizer builds a Synchronizer over the bookings repository.
func NewSynchronizer(repo Repository) (*Synchronizer, error) {
	if repo == nil {
		return nil, errors.New("bookings repository required")
	}
	return &Synchronizer{repo: repo}, nil
}

// FindBooking loads a booking outside of any transaction.
func (s *Synchronizer) FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateLoadErr(err)
	}
	return booking, nil
}

// MarkAuthorizedTx records that the guest's funds are held.
func (s *Synchronizer) MarkAuthorizedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error {
	return s.mirror(ctx, tx, bookingID,
		map[string]any{
			"payment_status": enums.BookingPaymentPaid,
			"status":         enums.BookingStatusInProgress,
		},
		map[string]any{"status": enums.RequestStatusInProgress},
	)
}

// MarkDeliveredTx flags the booking as delivered and points it at the latest delivery url.
func (s *Synchronizer) MarkDeliveredTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, deliveryURL *string) error {
	return s.mirror(ctx, tx, bookingID,
		map[string]any{
			"photos_delivered": true,
			"delivery_url":     deliveryURL,
		},
		map[string]any{"status": enums.RequestStatusDelivered},
	)
}

// MarkCompletedTx closes the booking after funds were released to the photographer.
func (s *Synchronizer) MarkCompletedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error {
	return s.mirror(ctx, tx, bookingID,
		map[string]any{"status": enums.BookingStatusCompleted},
		map[string]any{"status": enums.RequestStatusCompleted},
	)
}

// MarkRefundedTx cancels the booking after its hold was released back to the guest.
func (s *Synchronizer) MarkRefundedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error {
	return s.mirror(ctx, tx, bookingID,
		map[string]any{
			"payment_status": enums.BookingPaymentRefunded,
			"status":         enums.BookingStatusCancelled,
		},
		map[string]any{"status": enums.RequestStatusCancelled},
	)
}

func (s *Synchronizer) mirror(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, bookingUpdates, requestUpdates map[string]any) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	booking, err := repo.FindByID(ctx, bookingID)
	if err != nil {
		return translateLoadErr(err)
	}
	if err := repo.UpdateBooking(ctx, booking.ID, bookingUpdates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	if booking.RequestID == uuid.Nil {
		return nil
	}
	if err := repo.UpdateRequest(ctx, booking.RequestID, requestUpdates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
	}
	return nil
}

func translateLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
}
