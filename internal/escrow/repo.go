package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// Guard is the expected prior state a conditional update is checked against.
// Zero-valued fields are not checked.
type Guard struct {
	Statuses       []enums.EscrowStatus
	DeliveryStatus *enums.DeliveryStatus
	// ClaimedBy requires the row to carry this capture claim.
	ClaimedBy *uuid.UUID
	// Unclaimed requires no capture claim at all, stale or not.
	Unclaimed bool
	// ClaimStaleBefore accepts rows without a claim or whose claim is older than the cutoff.
	ClaimStaleBefore *time.Time
	// AutoConfirmDueBy requires auto confirmation to be enabled and due by the instant.
	AutoConfirmDueBy *time.Time
}

// SweepCursor is the keyset position after the last row a sweep page returned.
type SweepCursor struct {
	AutoConfirmAt time.Time
	ID            uuid.UUID
}

// Repository persists escrow payments. ConditionalUpdate is the only way rows change state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.EscrowPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
	FindByHoldRef(ctx context.Context, holdRef string) (*models.EscrowPayment, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, guard Guard, patch map[string]any) (bool, error)
	ListEligibleForSweep(ctx context.Context, now, claimStaleBefore time.Time, after *SweepCursor, limit int) ([]models.EscrowPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.EscrowPayment) error {
	if payment == nil {
		return errors.New("escrow payment required")
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	return r.first(ctx, "booking_id = ?", bookingID)
}

func (r *repository) FindByHoldRef(ctx context.Context, holdRef string) (*models.EscrowPayment, error) {
	return r.first(ctx, "gateway_hold_ref = ?", holdRef)
}

func (r *repository) first(ctx context.Context, query string, arg any) (*models.EscrowPayment, error) {
	var payment models.EscrowPayment
	if err := r.db.WithContext(ctx).Where(query, arg).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ConditionalUpdate applies patch only when the row still matches guard, reporting whether it did.
func (r *repository) ConditionalUpdate(ctx context.Context, id uuid.UUID, guard Guard, patch map[string]any) (bool, error) {
	if len(patch) == 0 {
		return false, errors.New("empty patch")
	}
	query := r.db.WithContext(ctx).Model(&models.EscrowPayment{}).Where("id = ?", id)
	query = applyGuard(query, guard)
	res := query.Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListEligibleForSweep pages due rows in (auto_confirm_at, id) order, starting after the cursor.
func (r *repository) ListEligibleForSweep(ctx context.Context, now, claimStaleBefore time.Time, after *SweepCursor, limit int) ([]models.EscrowPayment, error) {
	delivered := enums.DeliveryStatusDelivered
	query := applyGuard(r.db.WithContext(ctx).Model(&models.EscrowPayment{}), Guard{
		Statuses:         []enums.EscrowStatus{enums.EscrowStatusEscrowed},
		DeliveryStatus:   &delivered,
		ClaimStaleBefore: &claimStaleBefore,
		AutoConfirmDueBy: &now,
	})
	if after != nil {
		at := after.AutoConfirmAt.UTC()
		query = query.Where("(auto_confirm_at > ? OR (auto_confirm_at = ? AND id > ?))", at, at, after.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.EscrowPayment
	if err := query.Order("auto_confirm_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyGuard(query *gorm.DB, guard Guard) *gorm.DB {
	if len(guard.Statuses) > 0 {
		statuses := make([]string, 0, len(guard.Statuses))
		for _, status := range guard.Statuses {
			statuses = append(statuses, string(status))
		}
		query = query.Where("escrow_status IN ?", statuses)
	}
	if guard.DeliveryStatus != nil {
		query = query.Where("delivery_status = ?", string(*guard.DeliveryStatus))
	}
	if guard.ClaimedBy != nil {
		query = query.Where("capture_claim_id = ?", *guard.ClaimedBy)
	}
	if guard.Unclaimed {
		query = query.Where("capture_claim_id IS NULL")
	}
	if guard.ClaimStaleBefore != nil {
		query = query.Where("(capture_claim_id IS NULL OR capture_claimed_at < ?)", *guard.ClaimStaleBefore)
	}
	if guard.AutoConfirmDueBy != nil {
		query = query.Where("auto_confirm_enabled = ?", true).
			Where("auto_confirm_at IS NOT NULL AND auto_confirm_at <= ?", *guard.AutoConfirmDueBy)
	}
	return query
}
