package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// PhotoDelivery is the single live delivery record for a booking.
type PhotoDelivery struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID         uuid.UUID            `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	PhotographerID    uuid.UUID            `gorm:"column:photographer_id;type:uuid;not null"`
	DeliveryMethod    enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method;not null"`
	PhotoCount        int                  `gorm:"column:photo_count;not null"`
	Resolution        *string              `gorm:"column:resolution"`
	Formats           pq.StringArray       `gorm:"column:formats;type:text[]"`
	DeliveryURL       *string              `gorm:"column:delivery_url"`
	ExternalURL       *string              `gorm:"column:external_url"`
	ExternalService   *string              `gorm:"column:external_service"`
	ExternalPassword  *string              `gorm:"column:external_password"`
	ExternalExpiresAt *time.Time           `gorm:"column:external_expires_at"`
	Notes             *string              `gorm:"column:notes"`
	DeliveredAt       time.Time            `gorm:"column:delivered_at;not null"`
	DownloadExpiresAt time.Time            `gorm:"column:download_expires_at;not null"`
	DownloadCount     int                  `gorm:"column:download_count;not null;default:0"`
	MaxDownloads      int                  `gorm:"column:max_downloads;not null;default:10"`
	ConfirmedAt       *time.Time           `gorm:"column:confirmed_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
