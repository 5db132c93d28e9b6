package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// PhotoRequest is the guest's original ask that a booking fulfils.
type PhotoRequest struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GuestID   uuid.UUID           `gorm:"column:guest_id;type:uuid;not null"`
	Status    enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'MATCHED'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
