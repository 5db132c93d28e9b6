package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

// EscrowView is the externally visible shape of an escrow payment.
type EscrowView struct {
	EscrowPaymentID      uuid.UUID             `json:"escrow_payment_id"`
	BookingID            uuid.UUID             `json:"booking_id"`
	GuestID              uuid.UUID             `json:"guest_id"`
	PhotographerID       uuid.UUID             `json:"photographer_id"`
	EscrowStatus         enums.EscrowStatus    `json:"escrow_status"`
	DeliveryStatus       enums.DeliveryStatus  `json:"delivery_status"`
	TotalAmount          int64                 `json:"total_amount"`
	PlatformFee          int64                 `json:"platform_fee"`
	PhotographerEarnings int64                 `json:"photographer_earnings"`
	Currency             string                `json:"currency"`
	GatewayProvider      enums.GatewayProvider `json:"gateway_provider"`
	GatewayHoldRef       string                `json:"gateway_hold_ref"`
	AutoConfirmEnabled   bool                  `json:"auto_confirm_enabled"`
	AutoConfirmHours     int                   `json:"auto_confirm_hours"`
	AutoConfirmAt        *time.Time            `json:"auto_confirm_at,omitempty"`
	EscrowedAt           *time.Time            `json:"escrowed_at,omitempty"`
	DeliveredAt          *time.Time            `json:"delivered_at,omitempty"`
	ConfirmedAt          *time.Time            `json:"confirmed_at,omitempty"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	DisputeCreatedAt     *time.Time            `json:"dispute_created_at,omitempty"`
	RefundedAt           *time.Time            `json:"refunded_at,omitempty"`
	DisputeReason        *string               `json:"dispute_reason,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

func newEscrowView(p *models.EscrowPayment) EscrowView {
	return EscrowView{
		EscrowPaymentID:      p.ID,
		BookingID:            p.BookingID,
		GuestID:              p.GuestID,
		PhotographerID:       p.PhotographerID,
		EscrowStatus:         p.EscrowStatus,
		DeliveryStatus:       p.DeliveryStatus,
		TotalAmount:          p.TotalAmount,
		PlatformFee:          p.PlatformFee,
		PhotographerEarnings: p.PhotographerEarnings,
		Currency:             p.Currency,
		GatewayProvider:      p.GatewayProvider,
		GatewayHoldRef:       p.GatewayHoldRef,
		AutoConfirmEnabled:   p.AutoConfirmEnabled,
		AutoConfirmHours:     p.AutoConfirmHours,
		AutoConfirmAt:        p.AutoConfirmAt,
		EscrowedAt:           p.EscrowedAt,
		DeliveredAt:          p.DeliveredAt,
		ConfirmedAt:          p.ConfirmedAt,
		CompletedAt:          p.CompletedAt,
		DisputeCreatedAt:     p.DisputeCreatedAt,
		RefundedAt:           p.RefundedAt,
		DisputeReason:        p.DisputeReason,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// participant reports whether the actor may read this escrow.
func (v EscrowView) participant(actor escrow.Actor) bool {
	return actor.ID == v.GuestID || actor.ID == v.PhotographerID || actor.Role == string(enums.ActorRoleAdmin)
}

// HoldView is returned when a hold is placed. ClientSecret is handed to the guest's client once.
type HoldView struct {
	Escrow       EscrowView `json:"escrow"`
	ClientSecret string     `json:"client_secret,omitempty"`
}

// ReceiptView reports how a guest's confirmation was settled.
type ReceiptView struct {
	BookingID    uuid.UUID      `json:"booking_id"`
	Outcome      escrow.Outcome `json:"outcome"`
	Escrow       *EscrowView    `json:"escrow,omitempty"`
	ReviewID     *uuid.UUID     `json:"review_id,omitempty"`
	CapturedAt   *time.Time     `json:"captured_at,omitempty"`
	DisputeNotes *string        `json:"dispute_notes,omitempty"`
}

func newReceiptView(r *escrow.ReceiptResult) ReceiptView {
	view := ReceiptView{
		BookingID:    r.BookingID,
		Outcome:      r.Outcome,
		CapturedAt:   r.CapturedAt,
		DisputeNotes: r.DisputeNotes,
	}
	if r.Payment != nil {
		ev := newEscrowView(r.Payment)
		view.Escrow = &ev
	}
	if r.Review != nil {
		id := r.Review.ID
		view.ReviewID = &id
	}
	return view
}

// DeliveryView is the delivery record as shown to the guest and photographer.
type DeliveryView struct {
	DeliveryID        uuid.UUID            `json:"delivery_id"`
	BookingID         uuid.UUID            `json:"booking_id"`
	PhotographerID    uuid.UUID            `json:"photographer_id"`
	DeliveryMethod    enums.DeliveryMethod `json:"delivery_method"`
	PhotoCount        int                  `json:"photo_count"`
	Resolution        *string              `json:"resolution,omitempty"`
	Formats           []string             `json:"formats,omitempty"`
	DeliveryURL       *string              `json:"delivery_url,omitempty"`
	ExternalURL       *string              `json:"external_url,omitempty"`
	ExternalService   *string              `json:"external_service,omitempty"`
	ExternalPassword  *string              `json:"external_password,omitempty"`
	ExternalExpiresAt *time.Time           `json:"external_expires_at,omitempty"`
	Notes             *string              `json:"notes,omitempty"`
	DeliveredAt       time.Time            `json:"delivered_at"`
	DownloadExpiresAt time.Time            `json:"download_expires_at"`
	DownloadCount     int                  `json:"download_count"`
	MaxDownloads      int                  `json:"max_downloads"`
	ConfirmedAt       *time.Time           `json:"confirmed_at,omitempty"`
}

func newDeliveryView(d *models.PhotoDelivery) DeliveryView {
	return DeliveryView{
		DeliveryID:        d.ID,
		BookingID:         d.BookingID,
		PhotographerID:    d.PhotographerID,
		DeliveryMethod:    d.DeliveryMethod,
		PhotoCount:        d.PhotoCount,
		Resolution:        d.Resolution,
		Formats:           []string(d.Formats),
		DeliveryURL:       d.DeliveryURL,
		ExternalURL:       d.ExternalURL,
		ExternalService:   d.ExternalService,
		ExternalPassword:  d.ExternalPassword,
		ExternalExpiresAt: d.ExternalExpiresAt,
		Notes:             d.Notes,
		DeliveredAt:       d.DeliveredAt,
		DownloadExpiresAt: d.DownloadExpiresAt,
		DownloadCount:     d.DownloadCount,
		MaxDownloads:      d.MaxDownloads,
		ConfirmedAt:       d.ConfirmedAt,
	}
}

// DisputeView is a filed dispute.
type DisputeView struct {
	DisputeID           uuid.UUID               `json:"dispute_id"`
	BookingID           uuid.UUID               `json:"booking_id"`
	EscrowPaymentID     uuid.UUID               `json:"escrow_payment_id"`
	RaisedBy            uuid.UUID               `json:"raised_by"`
	Reason              enums.DisputeReason     `json:"reason"`
	Description         string                  `json:"description"`
	EvidenceURLs        []string                `json:"evidence_urls"`
	RequestedResolution enums.DisputeResolution `json:"requested_resolution"`
	Status              enums.DisputeStatus     `json:"status"`
	CreatedAt           time.Time               `json:"created_at"`
}

func newDisputeView(d *models.Dispute) DisputeView {
	evidence := []string(d.EvidenceURLs)
	if evidence == nil {
		evidence = []string{}
	}
	return DisputeView{
		DisputeID:           d.ID,
		BookingID:           d.BookingID,
		EscrowPaymentID:     d.EscrowPaymentID,
		RaisedBy:            d.RaisedBy,
		Reason:              d.Reason,
		Description:         d.Description,
		EvidenceURLs:        evidence,
		RequestedResolution: d.RequestedResolution,
		Status:              d.Status,
		CreatedAt:           d.CreatedAt,
	}
}

// DeliveryServices lists the directory in display order.
type DeliveryServices struct {
	Services []delivery.ExternalService `json:"services"`
}
