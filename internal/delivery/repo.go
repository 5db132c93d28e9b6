package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
)

var replaceableColumns = []string{
	"photographer_id",
	"delivery_method",
	"photo_count",
	"resolution",
	"formats",
	"delivery_url",
	"external_url",
	"external_service",
	"external_password",
	"external_expires_at",
	"notes",
	"delivered_at",
	"download_expires_at",
	"download_count",
	"max_downloads",
	"updated_at",
}

// Repository persists the single live delivery of each booking.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.PhotoDelivery, error)
	// Upsert inserts or replaces the booking's delivery unless it was already confirmed.
	Upsert(ctx context.Context, delivery *models.PhotoDelivery) (bool, error)
	MarkConfirmed(ctx context.Context, bookingID uuid.UUID, at time.Time) error
	IncrementDownload(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a delivery repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.PhotoDelivery, error) {
	var delivery models.PhotoDelivery
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) Upsert(ctx context.Context, delivery *models.PhotoDelivery) (bool, error) {
	if delivery == nil {
		return false, errors.New("delivery required")
	}
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoUpdates: clause.AssignmentColumns(replaceableColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "photo_deliveries.confirmed_at IS NULL"},
		}},
	}).Create(delivery)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, bookingID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PhotoDelivery{}).
		Where("booking_id = ? AND confirmed_at IS NULL", bookingID).
		Update("confirmed_at", at.UTC()).Error
}

func (r *repository) IncrementDownload(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PhotoDelivery{}).
		Where("booking_id = ?", bookingID).
		Where("download_count < max_downloads").
		Where("download_expires_at > ?", now.UTC()).
		Update("download_count", gorm.Expr("download_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Confirmer adapts the repository to the escrow completion path.
type Confirmer struct {
	repo Repository
}

// NewConfirmer wraps repo so escrow completion can stamp confirmed_at.
func NewConfirmer(repo Repository) *Confirmer {
	return &Confirmer{repo: repo}
}

// MarkConfirmedTx stamps confirmed_at on the booking's delivery inside tx.
func (c *Confirmer) MarkConfirmedTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, at time.Time) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return c.repo.WithTx(tx).MarkConfirmed(ctx, bookingID, at)
}
