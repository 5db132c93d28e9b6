package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// SeedBooking inserts a matched request and its confirmed booking. A nil fee leaves the
// platform fee to be derived from the configured rate.
func SeedBooking(t *testing.T, conn *gorm.DB, total int64, fee *int64) *models.Booking {
	t.Helper()

	guestID := uuid.New()
	request := &models.PhotoRequest{
		ID:      uuid.New(),
		GuestID: guestID,
		Status:  enums.RequestStatusMatched,
	}
	require.NoError(t, conn.Create(request).Error)

	booking := &models.Booking{
		ID:             uuid.New(),
		RequestID:      request.ID,
		GuestID:        guestID,
		PhotographerID: uuid.New(),
		TotalAmount:    total,
		PlatformFee:    fee,
		Currency:       "usd",
		Status:         enums.BookingStatusConfirmed,
		PaymentStatus:  enums.BookingPaymentUnpaid,
	}
	require.NoError(t, conn.Create(booking).Error)
	return booking
}

// LoadBooking re-reads a booking and its request.
func LoadBooking(t *testing.T, conn *gorm.DB, id uuid.UUID) (*models.Booking, *models.PhotoRequest) {
	t.Helper()

	var booking models.Booking
	require.NoError(t, conn.Where("id = ?", id).First(&booking).Error)
	var request models.PhotoRequest
	require.NoError(t, conn.Where("id = ?", booking.RequestID).First(&request).Error)
	return &booking, &request
}

// CountOutbox counts queued outbox events of one type.
func CountOutbox(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", string(eventType)).Count(&count).Error)
	return count
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
