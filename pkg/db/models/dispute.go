package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// Dispute freezes an escrow until an operator resolves it outside this service.
type Dispute struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID           uuid.UUID               `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	EscrowPaymentID     uuid.UUID               `gorm:"column:escrow_payment_id;type:uuid;not null"`
	RaisedBy            uuid.UUID               `gorm:"column:raised_by;type:uuid;not null"`
	Reason              enums.DisputeReason     `gorm:"column:reason;type:dispute_reason;not null"`
	Description         string                  `gorm:"column:description;not null"`
	EvidenceURLs        pq.StringArray          `gorm:"column:evidence_urls;type:text[]"`
	RequestedResolution enums.DisputeResolution `gorm:"column:requested_resolution;type:dispute_resolution;not null"`
	Status              enums.DisputeStatus     `gorm:"column:status;type:dispute_status;not null;default:'PENDING'"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
