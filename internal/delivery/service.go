package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shootpay-backend/pkg/validation"
)

const (
	defaultDownloadWindow = 30 * 24 * time.Hour
	defaultMaxDownloads   = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type escrowTracker interface {
	Get(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, at time.Time) (*models.EscrowPayment, error)
}

type bookingMirror interface {
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, deliveryURL *string) error
}

// RecordDeliveryInput is what a photographer submits when handing over photos.
type RecordDeliveryInput struct {
	BookingID         uuid.UUID            `json:"booking_id" validate:"required"`
	Actor             escrow.Actor         `json:"-"`
	Method            enums.DeliveryMethod `json:"delivery_method" validate:"required,oneof=EXTERNAL_URL DIRECT_UPLOAD"`
	PhotoCount        int                  `json:"photo_count" validate:"required,min=1,max=10000"`
	Resolution        *string              `json:"resolution,omitempty" validate:"omitempty,max=32"`
	Formats           []string             `json:"formats,omitempty" validate:"omitempty,max=10,dive,required,max=16"`
	DeliveryURL       *string              `json:"delivery_url,omitempty" validate:"omitempty,url"`
	ExternalURL       *string              `json:"external_url,omitempty" validate:"omitempty,url"`
	ExternalService   *string              `json:"external_service,omitempty"`
	ExternalPassword  *string              `json:"external_password,omitempty" validate:"omitempty,max=128"`
	ExternalExpiresAt *time.Time           `json:"external_expires_at,omitempty"`
	Notes             *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// DownloadGrant is returned when a guest opens a delivery.
type DownloadGrant struct {
	DeliveryURL       string    `json:"delivery_url"`
	DownloadCount     int       `json:"download_count"`
	RemainingCount    int       `json:"remaining_count"`
	DownloadExpiresAt time.Time `json:"download_expires_at"`
}

// Settings bound how long and how often a delivery can be downloaded.
type Settings struct {
	DownloadWindow time.Duration
	MaxDownloads   int
}

// Service records photo deliveries against held escrows.
type Service interface {
	RecordDelivery(ctx context.Context, input RecordDeliveryInput) (*models.PhotoDelivery, error)
	GetDelivery(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*models.PhotoDelivery, error)
	RegisterDownload(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*DownloadGrant, error)
	ListServices() []ExternalService
}

// ServiceParams names the collaborators of the delivery service.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Escrow        escrowTracker
	Bookings      bookingMirror
	Settings      Settings
	Logger        *logger.Logger
	OnStateChange escrow.StateChangeHook
	Now           func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	escrow   escrowTracker
	bookings bookingMirror
	settings Settings
	logg     *logger.Logger
	onChange escrow.StateChangeHook
	clock    func() time.Time
}

// NewService builds the delivery tracker.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking synchronizer required")
	}
	settings := params.Settings
	if settings.DownloadWindow <= 0 {
		settings.DownloadWindow = defaultDownloadWindow
	}
	if settings.MaxDownloads <= 0 {
		settings.MaxDownloads = defaultMaxDownloads
	}
	clock := params.Now
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		escrow:   params.Escrow,
		bookings: params.Bookings,
		settings: settings,
		logg:     params.Logger,
		onChange: params.OnStateChange,
		clock:    clock,
	}, nil
}

func (s *service) RecordDelivery(ctx context.Context, input RecordDeliveryInput) (*models.PhotoDelivery, error) {
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	if err := validateMethod(input, now); err != nil {
		return nil, err
	}

	payment, err := s.escrow.Get(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if payment.PhotographerID != input.Actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking photographer can deliver")
	}
	existing, err := s.repo.FindByBookingID(ctx, input.BookingID)
	switch {
	case err == nil && existing.ConfirmedAt != nil:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyConfirmed, "delivery already confirmed by guest")
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	if payment.EscrowStatus != enums.EscrowStatusEscrowed {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow is not holding funds")
	}

	delivery := buildDelivery(input, now, s.settings)
	var stored *models.PhotoDelivery
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		written, err := repo.Upsert(ctx, delivery)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery")
		}
		if !written {
			return pkgerrors.New(pkgerrors.CodeAlreadyConfirmed, "delivery already confirmed by guest")
		}
		updated, err := s.escrow.MarkDeliveredTx(ctx, tx, input.BookingID, now)
		if err != nil {
			return err
		}
		if err := s.bookings.MarkDeliveredTx(ctx, tx, input.BookingID, guestURL(delivery)); err != nil {
			return err
		}
		stored, err = repo.FindByBookingID(ctx, input.BookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
		}
		return s.emitDelivered(ctx, tx, updated, stored, input.Actor)
	})
	if err != nil {
		s.logFailure(ctx, "record_delivery", input.BookingID, err)
		return nil, err
	}

	if s.onChange != nil {
		s.onChange(ctx, input.BookingID)
	}
	return stored, nil
}

func (s *service) emitDelivered(ctx context.Context, tx *gorm.DB, payment *models.EscrowPayment, delivery *models.PhotoDelivery, actor escrow.Actor) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEscrowPhotosDelivered,
		AggregateType: enums.AggregatePhotoDelivery,
		AggregateID:   delivery.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.Role},
		Data: payloads.PhotosDeliveredEvent{
			EscrowStateChangedEvent: escrow.StateChangedEvent(payment, ""),
			DeliveryID:              delivery.ID,
			DeliveryMethod:          delivery.DeliveryMethod,
			PhotoCount:              delivery.PhotoCount,
			DownloadExpiresAt:       delivery.DownloadExpiresAt,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit photos delivered")
	}
	return nil
}

func (s *service) GetDelivery(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*models.PhotoDelivery, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	payment, err := s.escrow.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != payment.GuestID && actor.ID != payment.PhotographerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this booking")
	}
	delivery, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	return delivery, nil
}

func (s *service) RegisterDownload(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*DownloadGrant, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	payment, err := s.escrow.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != payment.GuestID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking guest can download")
	}
	delivery, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}

	now := s.clock().UTC()
	if !now.Before(delivery.DownloadExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "download window has closed")
	}
	ok, err := s.repo.IncrementDownload(ctx, bookingID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register download")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "download limit reached")
	}

	count := delivery.DownloadCount + 1
	link := guestURL(delivery)
	grant := &DownloadGrant{
		DownloadCount:     count,
		RemainingCount:    max(delivery.MaxDownloads-count, 0),
		DownloadExpiresAt: delivery.DownloadExpiresAt,
	}
	if link != nil {
		grant.DeliveryURL = *link
	}
	return grant, nil
}

func (s *service) ListServices() []ExternalService {
	return Services()
}

func (s *service) logFailure(ctx context.Context, op string, bookingID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOperation(ctx, op)
	ctx = s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Error(ctx, "delivery operation failed", err)
}

func validateMethod(input RecordDeliveryInput, now time.Time) error {
	switch input.Method {
	case enums.DeliveryMethodDirectUpload:
		if blank(input.DeliveryURL) {
			return fieldError("delivery_url", "is required for direct uploads")
		}
		if !blank(input.ExternalURL) || !blank(input.ExternalService) {
			return fieldError("external_url", "not allowed for direct uploads")
		}
		return nil
	case enums.DeliveryMethodExternalURL:
		if blank(input.ExternalURL) {
			return fieldError("external_url", "is required for external deliveries")
		}
		if blank(input.ExternalService) {
			return fieldError("external_service", "is required for external deliveries")
		}
		svc, ok := LookupService(*input.ExternalService)
		if !ok {
			return fieldError("external_service", "is not a supported service")
		}
		if !svc.Matches(*input.ExternalURL) {
			return fieldError("external_url", "does not look like a "+svc.Name+" link")
		}
		if !blank(input.ExternalPassword) && !svc.SupportsPassword {
			return fieldError("external_password", svc.Name+" links cannot carry a password")
		}
		if input.ExternalExpiresAt != nil {
			if !svc.SupportsExpiry {
				return fieldError("external_expires_at", svc.Name+" links cannot carry an expiry")
			}
			if !input.ExternalExpiresAt.After(now) {
				return fieldError("external_expires_at", "must be in the future")
			}
		}
		return nil
	}
	return fieldError("delivery_method", "is invalid")
}

func buildDelivery(input RecordDeliveryInput, now time.Time, settings Settings) *models.PhotoDelivery {
	delivery := &models.PhotoDelivery{
		ID:                uuid.New(),
		BookingID:         input.BookingID,
		PhotographerID:    input.Actor.ID,
		DeliveryMethod:    input.Method,
		PhotoCount:        input.PhotoCount,
		Resolution:        trimmed(input.Resolution),
		Formats:           pq.StringArray(normalizeFormats(input.Formats)),
		Notes:             trimmed(input.Notes),
		DeliveredAt:       now,
		DownloadExpiresAt: now.Add(settings.DownloadWindow),
		DownloadCount:     0,
		MaxDownloads:      settings.MaxDownloads,
	}
	if input.Method == enums.DeliveryMethodExternalURL {
		service := strings.ToLower(strings.TrimSpace(*input.ExternalService))
		delivery.ExternalURL = trimmed(input.ExternalURL)
		delivery.ExternalService = &service
		delivery.ExternalPassword = trimmed(input.ExternalPassword)
		if input.ExternalExpiresAt != nil {
			at := input.ExternalExpiresAt.UTC()
			delivery.ExternalExpiresAt = &at
		}
	} else {
		delivery.DeliveryURL = trimmed(input.DeliveryURL)
	}
	return delivery
}

func guestURL(delivery *models.PhotoDelivery) *string {
	if delivery.ExternalURL != nil {
		return delivery.ExternalURL
	}
	return delivery.DeliveryURL
}

func normalizeFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	seen := map[string]struct{}{}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: msg})
}

func translateFindErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
}
