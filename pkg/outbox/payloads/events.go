package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// EscrowStateChangedEvent is the common shape for every escrow transition. Fields that do
// not apply to a given transition are left empty.
type EscrowStateChangedEvent struct {
	EscrowPaymentID      uuid.UUID            `json:"escrow_payment_id"`
	BookingID            uuid.UUID            `json:"booking_id"`
	GuestID              uuid.UUID            `json:"guest_id"`
	PhotographerID       uuid.UUID            `json:"photographer_id"`
	FromStatus           enums.EscrowStatus   `json:"from_status,omitempty"`
	EscrowStatus         enums.EscrowStatus   `json:"escrow_status"`
	DeliveryStatus       enums.DeliveryStatus `json:"delivery_status"`
	TotalAmount          int64                `json:"total_amount"`
	PlatformFee          int64                `json:"platform_fee"`
	PhotographerEarnings int64                `json:"photographer_earnings"`
	Currency             string               `json:"currency"`
	Gateway              string               `json:"gateway"`
	CompletedBy          string               `json:"completed_by,omitempty"`
	DisputeReason        *string              `json:"dispute_reason,omitempty"`
	AutoConfirmAt        *time.Time           `json:"auto_confirm_at,omitempty"`
}

// PhotosDeliveredEvent is emitted whenever a photographer records or replaces a delivery.
type PhotosDeliveredEvent struct {
	EscrowStateChangedEvent
	DeliveryID        uuid.UUID            `json:"delivery_id"`
	DeliveryMethod    enums.DeliveryMethod `json:"delivery_method"`
	PhotoCount        int                  `json:"photo_count"`
	DownloadExpiresAt time.Time            `json:"download_expires_at"`
}

// DisputeCreatedEvent carries the full dispute record filed by a guest.
type DisputeCreatedEvent struct {
	DisputeID           uuid.UUID               `json:"dispute_id"`
	EscrowPaymentID     uuid.UUID               `json:"escrow_payment_id"`
	BookingID           uuid.UUID               `json:"booking_id"`
	RaisedBy            uuid.UUID               `json:"raised_by"`
	Reason              enums.DisputeReason     `json:"reason"`
	RequestedResolution enums.DisputeResolution `json:"requested_resolution"`
	EvidenceCount       int                     `json:"evidence_count"`
}
