package reviews

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/validation"
)

// Input is the review a guest attaches when confirming delivery.
type Input struct {
	Rating              int     `json:"rating" validate:"required,min=1,max=5"`
	PhotoQualityRating  *int    `json:"photo_quality_rating,omitempty" validate:"omitempty,min=1,max=5"`
	CommunicationRating *int    `json:"communication_rating,omitempty" validate:"omitempty,min=1,max=5"`
	PunctualityRating   *int    `json:"punctuality_rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment             *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// Validate checks the struct tags and reports failing fields as VALIDATION_ERROR details.
func (in Input) Validate() error {
	return validation.Struct(in)
}

// Build turns validated input into a review row for the booking.
func (in Input) Build(bookingID, reviewerID, photographerID uuid.UUID) *models.Review {
	var comment *string
	if in.Comment != nil {
		if trimmed := strings.TrimSpace(*in.Comment); trimmed != "" {
			comment = &trimmed
		}
	}
	return &models.Review{
		ID:                  uuid.New(),
		BookingID:           bookingID,
		ReviewerID:          reviewerID,
		PhotographerID:      photographerID,
		Rating:              in.Rating,
		PhotoQualityRating:  in.PhotoQualityRating,
		CommunicationRating: in.CommunicationRating,
		PunctualityRating:   in.PunctualityRating,
		Comment:             comment,
	}
}
