package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// Booking is owned by the matching flow; settlement only writes its status mirror columns.
type Booking struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID       uuid.UUID                  `gorm:"column:request_id;type:uuid;not null"`
	GuestID         uuid.UUID                  `gorm:"column:guest_id;type:uuid;not null"`
	PhotographerID  uuid.UUID                  `gorm:"column:photographer_id;type:uuid;not null"`
	TotalAmount     int64                      `gorm:"column:total_amount;not null"`
	PlatformFee     *int64                     `gorm:"column:platform_fee"`
	Currency        string                     `gorm:"column:currency;not null;default:'usd'"`
	Status          enums.BookingStatus        `gorm:"column:status;type:booking_status;not null;default:'CONFIRMED'"`
	PaymentStatus   enums.BookingPaymentStatus `gorm:"column:payment_status;type:booking_payment_status;not null;default:'UNPAID'"`
	PhotosDelivered bool                       `gorm:"column:photos_delivered;not null;default:false"`
	DeliveryURL     *string                    `gorm:"column:delivery_url"`
	ScheduledAt     *time.Time                 `gorm:"column:scheduled_at"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
