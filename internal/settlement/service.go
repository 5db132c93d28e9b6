// Package settlement is the operation surface over the escrow core. Every operation
// returns a types.Result instead of an error so callers never handle raw failures.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/disputes"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

// ServiceParams names the collaborators of the operation surface.
type ServiceParams struct {
	Escrow   escrow.Service
	Delivery delivery.Service
	Disputes disputes.Service
	Cache    *StatusCache
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service exposes the settlement operations.
type Service struct {
	escrow   escrow.Service
	delivery delivery.Service
	disputes disputes.Service
	cache    *StatusCache
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService wires the operation surface.
func NewService(params ServiceParams) (*Service, error) {
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if params.Delivery == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if params.Disputes == nil {
		return nil, fmt.Errorf("disputes service required")
	}
	clock := params.Now
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		escrow:   params.Escrow,
		delivery: params.Delivery,
		disputes: params.Disputes,
		cache:    params.Cache,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

// CreateEscrowPayment places the hold for a booking.
func (s *Service) CreateEscrowPayment(ctx context.Context, input escrow.CreateHoldInput) types.Result[HoldView] {
	hold, err := s.escrow.CreateHold(ctx, input)
	if err != nil {
		return fail[HoldView](ctx, s.logg, "create_escrow_payment", input.BookingID, err)
	}
	return types.Ok(HoldView{Escrow: newEscrowView(hold.Payment), ClientSecret: hold.ClientSecret})
}

// ConfirmEscrowPayment records the gateway's authorization of a hold. Repeats are harmless.
func (s *Service) ConfirmEscrowPayment(ctx context.Context, holdRef string) types.Result[EscrowView] {
	payment, err := s.escrow.ConfirmAuthorization(ctx, holdRef)
	if err != nil {
		return fail[EscrowView](ctx, s.logg, "confirm_escrow_payment", uuid.Nil, err)
	}
	return types.Ok(newEscrowView(payment))
}

// DeliverPhotos records the photographer's delivery.
func (s *Service) DeliverPhotos(ctx context.Context, input delivery.RecordDeliveryInput) types.Result[DeliveryView] {
	record, err := s.delivery.RecordDelivery(ctx, input)
	if err != nil {
		return fail[DeliveryView](ctx, s.logg, "deliver_photos", input.BookingID, err)
	}
	return types.Ok(newDeliveryView(record))
}

// ConfirmDeliveryWithReview settles or freezes the escrow on the guest's answer. A dispute is a
// successful outcome, not a failure.
func (s *Service) ConfirmDeliveryWithReview(ctx context.Context, input escrow.ConfirmReceiptInput) types.Result[ReceiptView] {
	result, err := s.escrow.ConfirmReceipt(ctx, input)
	if err != nil {
		return fail[ReceiptView](ctx, s.logg, "confirm_delivery", input.BookingID, err)
	}
	return types.Ok(newReceiptView(result))
}

// CreateDispute files a dispute and freezes the escrow.
func (s *Service) CreateDispute(ctx context.Context, input disputes.CreateDisputeInput) types.Result[DisputeView] {
	dispute, err := s.disputes.CreateDispute(ctx, input)
	if err != nil {
		return fail[DisputeView](ctx, s.logg, "create_dispute", input.BookingID, err)
	}
	return types.Ok(newDisputeView(dispute))
}

// GetDispute returns the dispute filed for a booking.
func (s *Service) GetDispute(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[DisputeView] {
	dispute, err := s.disputes.GetDispute(ctx, bookingID, actor)
	if err != nil {
		return fail[DisputeView](ctx, s.logg, "get_dispute", bookingID, err)
	}
	return types.Ok(newDisputeView(dispute))
}

// ProcessAutoConfirmations runs one sweep at the current time.
func (s *Service) ProcessAutoConfirmations(ctx context.Context) types.Result[escrow.SweepResult] {
	result, err := s.escrow.Sweep(ctx, s.clock().UTC())
	if err != nil {
		return fail[escrow.SweepResult](ctx, s.logg, "process_auto_confirmations", uuid.Nil, err)
	}
	return types.Ok(*result)
}

// GetEscrowPaymentStatus reads the escrow through the status cache. Only the booking's
// participants and admins may read it.
func (s *Service) GetEscrowPaymentStatus(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[EscrowView] {
	if actor.ID == uuid.Nil {
		return types.Fail[EscrowView](pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
	}
	if bookingID == uuid.Nil {
		return types.Fail[EscrowView](pkgerrors.New(pkgerrors.CodeValidation, "booking id required"))
	}

	view, version, hit := s.cache.load(ctx, bookingID)
	if !hit {
		payment, err := s.escrow.Get(ctx, bookingID)
		if err != nil {
			return fail[EscrowView](ctx, s.logg, "get_escrow_status", bookingID, err)
		}
		fresh := newEscrowView(payment)
		s.cache.save(ctx, fresh, version)
		view = &fresh
	}
	if !view.participant(actor) {
		return types.Fail[EscrowView](pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this booking"))
	}
	return types.Ok(*view)
}

// RefundEscrowPayment releases a hold back to the guest. Admin only.
func (s *Service) RefundEscrowPayment(ctx context.Context, input escrow.RefundInput) types.Result[EscrowView] {
	if input.Actor.ID == uuid.Nil {
		return types.Fail[EscrowView](pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
	}
	if input.Actor.Role != string(enums.ActorRoleAdmin) {
		return types.Fail[EscrowView](pkgerrors.New(pkgerrors.CodeForbidden, "refunds require an admin"))
	}
	payment, err := s.escrow.Refund(ctx, input)
	if err != nil {
		return fail[EscrowView](ctx, s.logg, "refund_escrow_payment", input.BookingID, err)
	}
	return types.Ok(newEscrowView(payment))
}

// GetDelivery returns the delivery record for a booking.
func (s *Service) GetDelivery(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[DeliveryView] {
	record, err := s.delivery.GetDelivery(ctx, bookingID, actor)
	if err != nil {
		return fail[DeliveryView](ctx, s.logg, "get_delivery", bookingID, err)
	}
	return types.Ok(newDeliveryView(record))
}

// RegisterDownload counts one download of the delivered photos.
func (s *Service) RegisterDownload(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[delivery.DownloadGrant] {
	grant, err := s.delivery.RegisterDownload(ctx, bookingID, actor)
	if err != nil {
		return fail[delivery.DownloadGrant](ctx, s.logg, "register_download", bookingID, err)
	}
	return types.Ok(*grant)
}

// ListDeliveryServices returns the external delivery directory.
func (s *Service) ListDeliveryServices() types.Result[DeliveryServices] {
	return types.Ok(DeliveryServices{Services: s.delivery.ListServices()})
}

// fail converts err into a failed Result. Outcomes the caller can act on are logged at
// info; anything unexpected is logged as an error.
func fail[T any](ctx context.Context, logg *logger.Logger, op string, bookingID uuid.UUID, err error) types.Result[T] {
	result := types.Fail[T](err)
	if logg == nil {
		return result
	}
	ctx = logg.WithOperation(ctx, op)
	if bookingID != uuid.Nil {
		ctx = logg.WithBookingID(ctx, bookingID.String())
	}
	if result.Error.Kind == pkgerrors.KindUnexpected {
		logg.Error(ctx, "settlement operation failed", err)
		return result
	}
	logg.Info(logg.WithField(ctx, "error_kind", string(result.Error.Kind)), "settlement operation rejected")
	return result
}
