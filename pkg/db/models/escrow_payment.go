package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// EscrowPayment holds guest funds for a booking until delivery is confirmed.
type EscrowPayment struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID            uuid.UUID             `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	GuestID              uuid.UUID             `gorm:"column:guest_id;type:uuid;not null"`
	PhotographerID       uuid.UUID             `gorm:"column:photographer_id;type:uuid;not null"`
	EscrowStatus         enums.EscrowStatus    `gorm:"column:escrow_status;type:escrow_status;not null;default:'PENDING'"`
	DeliveryStatus       enums.DeliveryStatus  `gorm:"column:delivery_status;type:delivery_status;not null;default:'WAITING'"`
	TotalAmount          int64                 `gorm:"column:total_amount;not null"`
	PlatformFee          int64                 `gorm:"column:platform_fee;not null"`
	PhotographerEarnings int64                 `gorm:"column:photographer_earnings;not null"`
	Currency             string                `gorm:"column:currency;not null"`
	GatewayProvider      enums.GatewayProvider `gorm:"column:gateway_provider;not null"`
	GatewayHoldRef       string                `gorm:"column:gateway_hold_ref;not null;uniqueIndex"`
	GuestEmail           *string               `gorm:"column:guest_email"`
	AutoConfirmEnabled   bool                  `gorm:"column:auto_confirm_enabled;not null;default:true"`
	AutoConfirmHours     int                   `gorm:"column:auto_confirm_hours;not null;default:72"`
	AutoConfirmAt        *time.Time            `gorm:"column:auto_confirm_at"`
	EscrowedAt           *time.Time            `gorm:"column:escrowed_at"`
	DeliveredAt          *time.Time            `gorm:"column:delivered_at"`
	ConfirmedAt          *time.Time            `gorm:"column:confirmed_at"`
	CompletedAt          *time.Time            `gorm:"column:completed_at"`
	DisputeCreatedAt     *time.Time            `gorm:"column:dispute_created_at"`
	RefundedAt           *time.Time            `gorm:"column:refunded_at"`
	DisputeReason        *string               `gorm:"column:dispute_reason"`
	CaptureClaimID       *uuid.UUID            `gorm:"column:capture_claim_id;type:uuid"`
	CaptureClaimedAt     *time.Time            `gorm:"column:capture_claimed_at"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
