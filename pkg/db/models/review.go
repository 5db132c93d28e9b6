package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is written once, when a guest confirms delivery.
type Review struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID           uuid.UUID `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	ReviewerID          uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null"`
	PhotographerID      uuid.UUID `gorm:"column:photographer_id;type:uuid;not null"`
	Rating              int       `gorm:"column:rating;not null"`
	PhotoQualityRating  *int      `gorm:"column:photo_quality_rating"`
	CommunicationRating *int      `gorm:"column:communication_rating"`
	PunctualityRating   *int      `gorm:"column:punctuality_rating"`
	Comment             *string   `gorm:"column:comment"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
}
