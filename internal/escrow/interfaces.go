package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BookingSync is the slice of the booking synchronizer the state machine drives.
type BookingSync interface {
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	MarkAuthorizedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error
	MarkCompletedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error
	MarkRefundedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error
}

// DeliveryConfirmer stamps confirmed_at on the booking's delivery once funds are released.
type DeliveryConfirmer interface {
	MarkConfirmedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, at time.Time) error
}

// StateChangeHook runs after a transition has committed, e.g. to drop cached views.
type StateChangeHook func(ctx context.Context, bookingID uuid.UUID)
