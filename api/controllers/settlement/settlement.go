package settlement

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/api/middleware"
	"github.com/angelmondragon/shootpay-backend/api/responses"
	"github.com/angelmondragon/shootpay-backend/api/validators"
	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/disputes"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	internalsettlement "github.com/angelmondragon/shootpay-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

// Service is the settlement surface the HTTP layer drives.
type Service interface {
	CreateEscrowPayment(ctx context.Context, input escrow.CreateHoldInput) types.Result[internalsettlement.HoldView]
	GetEscrowPaymentStatus(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[internalsettlement.EscrowView]
	RefundEscrowPayment(ctx context.Context, input escrow.RefundInput) types.Result[internalsettlement.EscrowView]
	DeliverPhotos(ctx context.Context, input delivery.RecordDeliveryInput) types.Result[internalsettlement.DeliveryView]
	GetDelivery(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[internalsettlement.DeliveryView]
	RegisterDownload(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[delivery.DownloadGrant]
	ListDeliveryServices() types.Result[internalsettlement.DeliveryServices]
	ConfirmDeliveryWithReview(ctx context.Context, input escrow.ConfirmReceiptInput) types.Result[internalsettlement.ReceiptView]
	CreateDispute(ctx context.Context, input disputes.CreateDisputeInput) types.Result[internalsettlement.DisputeView]
	GetDispute(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[internalsettlement.DisputeView]
	ProcessAutoConfirmations(ctx context.Context) types.Result[escrow.SweepResult]
}

type createEscrowRequest struct {
	BookingID    uuid.UUID `json:"booking_id" validate:"required"`
	GuestContact *string   `json:"guest_contact,omitempty" validate:"omitempty,email"`
	SourceID     *string   `json:"source_id,omitempty" validate:"omitempty,max=255"`
}

type confirmReceiptRequest struct {
	Satisfied *bool          `json:"satisfied" validate:"required"`
	Review    *reviews.Input `json:"review,omitempty"`
	Issues    []string       `json:"issues,omitempty" validate:"omitempty,max=20,dive,required,max=500"`
}

type refundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreateEscrow places the hold for a booking.
func CreateEscrow(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		var payload createEscrowRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result := svc.CreateEscrowPayment(r.Context(), escrow.CreateHoldInput{
			BookingID:    payload.BookingID,
			GuestContact: payload.GuestContact,
			SourceID:     payload.SourceID,
			Actor:        actorFromRequest(r),
		})
		responses.WriteResult(w, http.StatusCreated, result)
	}
}

// EscrowStatus returns the escrow for a booking to its participants.
func EscrowStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		responses.WriteResult(w, http.StatusOK, svc.GetEscrowPaymentStatus(r.Context(), bookingID, actorFromRequest(r)))
	})
}

// RefundEscrow cancels the hold and returns the funds to the guest.
func RefundEscrow(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		var payload refundRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result := svc.RefundEscrowPayment(r.Context(), escrow.RefundInput{
			BookingID: bookingID,
			Reason:    validators.SanitizeString(payload.Reason, 500),
			Actor:     actorFromRequest(r),
		})
		responses.WriteResult(w, http.StatusOK, result)
	})
}

// ConfirmReceipt is the guest's answer to a delivery: release the funds or raise issues.
func ConfirmReceipt(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		var payload confirmReceiptRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		issues := make([]string, 0, len(payload.Issues))
		for _, issue := range payload.Issues {
			if trimmed := strings.TrimSpace(issue); trimmed != "" {
				issues = append(issues, trimmed)
			}
		}
		result := svc.ConfirmDeliveryWithReview(r.Context(), escrow.ConfirmReceiptInput{
			BookingID: bookingID,
			Actor:     actorFromRequest(r),
			Satisfied: *payload.Satisfied,
			Review:    payload.Review,
			Issues:    issues,
		})
		responses.WriteResult(w, http.StatusOK, result)
	})
}

// DeliverPhotos records the photographer's delivery.
func DeliverPhotos(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		var payload delivery.RecordDeliveryInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Actor = actorFromRequest(r)
		responses.WriteResult(w, http.StatusCreated, svc.DeliverPhotos(r.Context(), payload))
	}
}

// GetDelivery returns the delivery record for a booking.
func GetDelivery(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		responses.WriteResult(w, http.StatusOK, svc.GetDelivery(r.Context(), bookingID, actorFromRequest(r)))
	})
}

// RegisterDownload counts a guest download against the delivery's allowance.
func RegisterDownload(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		responses.WriteResult(w, http.StatusOK, svc.RegisterDownload(r.Context(), bookingID, actorFromRequest(r)))
	})
}

// DeliveryServices lists the external hosts photographers may deliver through.
func DeliveryServices(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		responses.WriteResult(w, http.StatusOK, svc.ListDeliveryServices())
	}
}

// CreateDispute freezes the escrow under a guest's dispute.
func CreateDispute(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		var payload disputes.CreateDisputeInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Actor = actorFromRequest(r)
		responses.WriteResult(w, http.StatusCreated, svc.CreateDispute(r.Context(), payload))
	}
}

// GetDispute returns the dispute filed for a booking.
func GetDispute(svc Service, logg *logger.Logger) http.HandlerFunc {
	return withBooking(svc, logg, func(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
		responses.WriteResult(w, http.StatusOK, svc.GetDispute(r.Context(), bookingID, actorFromRequest(r)))
	})
}

// RunAutoConfirm triggers one sweep batch on demand.
func RunAutoConfirm(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		responses.WriteResult(w, http.StatusOK, svc.ProcessAutoConfirmations(r.Context()))
	}
}

func withBooking(svc Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		bookingID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "bookingId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking id").WithDetails(map[string]any{"field": "bookingId"}))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBookingID(ctx, bookingID.String())
		}
		fn(w, r.WithContext(ctx), bookingID)
	}
}

// actorFromRequest yields uuid.Nil for callers without a valid identity; the
// settlement service answers those with AuthenticationRequired.
func actorFromRequest(r *http.Request) escrow.Actor {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return escrow.Actor{}
	}
	return escrow.Actor{ID: actor.UserID, Role: string(actor.Role)}
}
