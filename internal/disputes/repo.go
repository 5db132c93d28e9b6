package disputes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
)

// Repository persists disputes filed against escrows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a disputes repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	if dispute == nil {
		return errors.New("dispute required")
	}
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}
