package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	"github.com/angelmondragon/shootpay-backend/pkg/config"
	dbpkg "github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/money"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
)

// Service owns every escrow transition.
type Service interface {
	CreateHold(ctx context.Context, input CreateHoldInput) (*HoldResult, error)
	ConfirmAuthorization(ctx context.Context, holdRef string) (*models.EscrowPayment, error)
	ConfirmReceipt(ctx context.Context, input ConfirmReceiptInput) (*ReceiptResult, error)
	Refund(ctx context.Context, input RefundInput) (*models.EscrowPayment, error)
	Sweep(ctx context.Context, now time.Time) (*SweepResult, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
	// FreezeTx moves a held escrow to DISPUTED inside the caller's transaction.
	FreezeTx(ctx context.Context, tx *gorm.DB, input FreezeInput) (*models.EscrowPayment, error)
	// MarkDeliveredTx flags a held escrow as delivered inside the caller's transaction.
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, at time.Time) (*models.EscrowPayment, error)
}

// Settings are the tunables of the state machine and the sweep.
type Settings struct {
	Currency         string
	AutoConfirmHours int
	FeeRate          decimal.Decimal
	SweepBatchSize   int
	SweepConcurrency int
	ClaimTTL         time.Duration
}

// SettingsFromConfig maps the escrow env config onto service settings.
func SettingsFromConfig(cfg config.EscrowConfig) Settings {
	return Settings{
		Currency:         cfg.Currency,
		AutoConfirmHours: cfg.AutoConfirmHours,
		FeeRate:          cfg.FeeRate(),
		SweepBatchSize:   cfg.SweepBatchSize,
		SweepConcurrency: cfg.SweepConcurrency,
		ClaimTTL:         cfg.CaptureClaimTTL,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Currency == "" {
		s.Currency = "usd"
	}
	if s.AutoConfirmHours <= 0 {
		s.AutoConfirmHours = 72
	}
	if s.SweepBatchSize <= 0 {
		s.SweepBatchSize = 200
	}
	if s.SweepConcurrency <= 0 {
		s.SweepConcurrency = 4
	}
	if s.ClaimTTL <= 0 {
		s.ClaimTTL = 10 * time.Minute
	}
	return s
}

// ServiceParams names the collaborators of the escrow service.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Gateway       Gateway
	Bookings      BookingSync
	Reviews       reviews.Repository
	Deliveries    DeliveryConfirmer
	Settings      Settings
	Logger        *logger.Logger
	Metrics       *metrics.EscrowMetrics
	OnStateChange StateChangeHook
	Now           func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	gateway    Gateway
	bookings   BookingSync
	reviews    reviews.Repository
	deliveries DeliveryConfirmer
	settings   Settings
	logg       *logger.Logger
	metrics    *metrics.EscrowMetrics
	onChange   StateChangeHook
	clock      func() time.Time
}

var errLostRace = errors.New("escrow row changed concurrently")

// NewService builds the escrow state machine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking synchronizer required")
	}
	if params.Reviews == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	clock := params.Now
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		gateway:    params.Gateway,
		bookings:   params.Bookings,
		reviews:    params.Reviews,
		deliveries: params.Deliveries,
		settings:   params.Settings.withDefaults(),
		logg:       params.Logger,
		metrics:    params.Metrics,
		onChange:   params.OnStateChange,
		clock:      clock,
	}, nil
}

func (s *service) CreateHold(ctx context.Context, input CreateHoldInput) (*HoldResult, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	booking, err := s.bookings.FindBooking(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != input.Actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking guest can fund escrow")
	}
	if booking.Status == enums.BookingStatusCancelled || booking.Status == enums.BookingStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "booking is no longer payable")
	}

	existing, err := s.repo.FindByBookingID(ctx, booking.ID)
	switch {
	case err == nil && existing.EscrowStatus == enums.EscrowStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow for booking was refunded")
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already exists for booking")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logFailure(ctx, "create_hold", booking.ID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow payment")
	}

	split, err := s.split(booking)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking amount")
	}
	currency := strings.ToLower(strings.TrimSpace(booking.Currency))
	if currency == "" {
		currency = s.settings.Currency
	}

	auth, err := s.gateway.Authorize(ctx, AuthorizeRequest{
		Amount:         split.Total,
		Currency:       currency,
		IdempotencyKey: holdKey(booking.ID),
		ReceiptEmail:   input.GuestContact,
		SourceID:       input.SourceID,
		Metadata: map[string]string{
			"booking_id":      booking.ID.String(),
			"guest_id":        booking.GuestID.String(),
			"photographer_id": booking.PhotographerID.String(),
		},
	})
	if err != nil {
		s.logFailure(ctx, "create_hold", booking.ID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "authorize hold")
	}
	if auth == nil || strings.TrimSpace(auth.HoldRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned no hold reference")
	}

	payment := &models.EscrowPayment{
		ID:                   uuid.New(),
		BookingID:            booking.ID,
		GuestID:              booking.GuestID,
		PhotographerID:       booking.PhotographerID,
		EscrowStatus:         enums.EscrowStatusPending,
		DeliveryStatus:       enums.DeliveryStatusWaiting,
		TotalAmount:          split.Total,
		PlatformFee:          split.PlatformFee,
		PhotographerEarnings: split.PhotographerEarnings,
		Currency:             currency,
		GatewayProvider:      s.gateway.Provider(),
		GatewayHoldRef:       auth.HoldRef,
		GuestEmail:           input.GuestContact,
		AutoConfirmEnabled:   true,
		AutoConfirmHours:     s.settings.AutoConfirmHours,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already exists for booking")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow payment")
		}
		return s.emit(ctx, tx, enums.EventEscrowHoldCreated, payment, "", actorRef(input.Actor), "")
	})
	if err != nil {
		if !pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed) {
			// The gateway hold lapses on its own when no row references it.
			s.logFailure(ctx, "create_hold", booking.ID, err)
		}
		return nil, err
	}

	s.metrics.IncTransition(string(enums.EscrowStatusPending))
	s.notify(ctx, booking.ID)
	return &HoldResult{Payment: payment, ClientSecret: auth.ClientSecret}, nil
}

func (s *service) split(booking *models.Booking) (money.Split, error) {
	if booking.PlatformFee != nil {
		return money.NewSplit(booking.TotalAmount, *booking.PlatformFee)
	}
	return money.SplitByRate(booking.TotalAmount, s.settings.FeeRate)
}

func (s *service) ConfirmAuthorization(ctx context.Context, holdRef string) (*models.EscrowPayment, error) {
	holdRef = strings.TrimSpace(holdRef)
	if holdRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway reference required")
	}

	payment, err := s.repo.FindByHoldRef(ctx, holdRef)
	if err != nil {
		return nil, translateFindErr(err)
	}
	switch payment.EscrowStatus {
	case enums.EscrowStatusEscrowed, enums.EscrowStatusCompleted, enums.EscrowStatusDisputed:
		return payment, nil
	case enums.EscrowStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow was refunded")
	}

	now := s.now()
	hours := payment.AutoConfirmHours
	if hours <= 0 {
		hours = s.settings.AutoConfirmHours
	}
	autoConfirmAt := now.Add(time.Duration(hours) * time.Hour)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).ConditionalUpdate(ctx, payment.ID,
			Guard{Statuses: []enums.EscrowStatus{enums.EscrowStatusPending}},
			map[string]any{
				"escrow_status":   enums.EscrowStatusEscrowed,
				"escrowed_at":     now,
				"auto_confirm_at": autoConfirmAt,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow authorized")
		}
		if !ok {
			return errLostRace
		}
		if err := s.bookings.MarkAuthorizedTx(ctx, tx, payment.BookingID); err != nil {
			return err
		}
		payment.EscrowStatus = enums.EscrowStatusEscrowed
		payment.EscrowedAt = &now
		payment.AutoConfirmAt = &autoConfirmAt
		payment.AutoConfirmHours = hours
		return s.emit(ctx, tx, enums.EventEscrowAuthorized, payment, enums.EscrowStatusPending, nil, "")
	})
	if errors.Is(err, errLostRace) {
		current, findErr := s.repo.FindByID(ctx, payment.ID)
		if findErr != nil {
			return nil, translateFindErr(findErr)
		}
		if current.EscrowStatus == enums.EscrowStatusRefunded {
			return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow was refunded")
		}
		return current, nil
	}
	if err != nil {
		s.logFailure(ctx, "confirm_authorization", payment.BookingID, err)
		return nil, err
	}

	s.metrics.IncTransition(string(enums.EscrowStatusEscrowed))
	s.notify(ctx, payment.BookingID)
	return payment, nil
}

func (s *service) ConfirmReceipt(ctx context.Context, input ConfirmReceiptInput) (*ReceiptResult, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var reason string
	if input.Satisfied {
		if input.Review != nil {
			if err := input.Review.Validate(); err != nil {
				return nil, err
			}
		}
	} else {
		reason = joinIssues(input.Issues)
		if reason == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "issues required when not satisfied")
		}
	}

	payment, err := s.repo.FindByBookingID(ctx, input.BookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	if payment.GuestID != input.Actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking guest can confirm delivery")
	}
	if payment.EscrowStatus == enums.EscrowStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already completed")
	}
	if payment.EscrowStatus != enums.EscrowStatusEscrowed || payment.DeliveryStatus != enums.DeliveryStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeNotDeliverable, "photos have not been delivered")
	}

	if !input.Satisfied {
		return s.disputeReceipt(ctx, input, reason)
	}

	actor := input.Actor
	return s.complete(ctx, payment, completion{
		path:   metrics.CapturePathGuest,
		at:     s.now(),
		actor:  &actor,
		review: input.Review,
	})
}

func (s *service) disputeReceipt(ctx context.Context, input ConfirmReceiptInput, reason string) (*ReceiptResult, error) {
	var frozen *models.EscrowPayment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		frozen, err = s.FreezeTx(ctx, tx, FreezeInput{
			BookingID: input.BookingID,
			Reason:    reason,
			Actor:     input.Actor,
		})
		return err
	})
	if pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed) {
		return s.alreadyProcessed(ctx, input.BookingID), nil
	}
	if err != nil {
		return nil, err
	}
	s.notify(ctx, input.BookingID)
	return &ReceiptResult{
		BookingID:    input.BookingID,
		Outcome:      OutcomeDisputed,
		Payment:      frozen,
		DisputeNotes: &reason,
	}, nil
}

func (s *service) FreezeTx(ctx context.Context, tx *gorm.DB, input FreezeInput) (*models.EscrowPayment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByBookingID(ctx, input.BookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	if payment.GuestID != input.Actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the booking guest can dispute")
	}
	switch payment.EscrowStatus {
	case enums.EscrowStatusEscrowed:
	case enums.EscrowStatusDisputed:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already disputed")
	case enums.EscrowStatusCompleted:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already completed")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow is not holding funds")
	}
	if payment.CaptureClaimID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "capture already in progress")
	}

	now := s.now()
	ok, err := repo.ConditionalUpdate(ctx, payment.ID,
		Guard{Statuses: []enums.EscrowStatus{enums.EscrowStatusEscrowed}, Unclaimed: true},
		map[string]any{
			"escrow_status":      enums.EscrowStatusDisputed,
			"dispute_reason":     reason,
			"dispute_created_at": now,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze escrow")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow changed concurrently")
	}

	payment.EscrowStatus = enums.EscrowStatusDisputed
	payment.DisputeReason = &reason
	payment.DisputeCreatedAt = &now
	if err := s.emit(ctx, tx, enums.EventEscrowDisputed, payment, enums.EscrowStatusEscrowed, actorRef(input.Actor), ""); err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.EscrowStatusDisputed))
	return payment, nil
}

func (s *service) MarkDeliveredTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, at time.Time) (*models.EscrowPayment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	if payment.EscrowStatus != enums.EscrowStatusEscrowed {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow is not holding funds")
	}
	if payment.CaptureClaimID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyConfirmed, "delivery is being confirmed")
	}

	at = at.UTC()
	ok, err := repo.ConditionalUpdate(ctx, payment.ID,
		Guard{Statuses: []enums.EscrowStatus{enums.EscrowStatusEscrowed}, Unclaimed: true},
		map[string]any{
			"delivery_status": enums.DeliveryStatusDelivered,
			"delivered_at":    at,
		})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow delivered")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, "escrow changed concurrently")
	}
	payment.DeliveryStatus = enums.DeliveryStatusDelivered
	payment.DeliveredAt = &at
	return payment, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.EscrowPayment, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	payment, err := s.repo.FindByBookingID(ctx, input.BookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	switch payment.EscrowStatus {
	case enums.EscrowStatusPending, enums.EscrowStatusEscrowed:
	case enums.EscrowStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already refunded")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotEligible, fmt.Sprintf("escrow cannot be refunded from %s", payment.EscrowStatus))
	}

	from := payment.EscrowStatus
	now := s.now()
	claimID := uuid.New()
	staleBefore := now.Add(-s.settings.ClaimTTL)
	refundable := []enums.EscrowStatus{enums.EscrowStatusPending, enums.EscrowStatusEscrowed}

	claimed, err := s.repo.ConditionalUpdate(ctx, payment.ID,
		Guard{Statuses: refundable, ClaimStaleBefore: &staleBefore},
		map[string]any{"capture_claim_id": claimID, "capture_claimed_at": now})
	if err != nil {
		s.logFailure(ctx, "refund", payment.BookingID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim escrow for refund")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow is already being settled")
	}

	if err := s.gateway.Cancel(ctx, payment.GatewayHoldRef, cancelKey(payment.GatewayHoldRef)); err != nil {
		s.releaseClaim(ctx, payment, claimID)
		s.logFailure(ctx, "refund", payment.BookingID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "cancel hold")
	}

	refundedAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).ConditionalUpdate(ctx, payment.ID,
			Guard{Statuses: refundable, ClaimedBy: &claimID},
			map[string]any{
				"escrow_status":      enums.EscrowStatusRefunded,
				"refunded_at":        refundedAt,
				"capture_claim_id":   nil,
				"capture_claimed_at": nil,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow refunded")
		}
		if !ok {
			return errLostRace
		}
		if err := s.bookings.MarkRefundedTx(ctx, tx, payment.BookingID); err != nil {
			return err
		}
		payment.EscrowStatus = enums.EscrowStatusRefunded
		payment.RefundedAt = &refundedAt
		payment.CaptureClaimID = nil
		payment.CaptureClaimedAt = nil
		return s.emit(ctx, tx, enums.EventEscrowRefunded, payment, from, actorRef(input.Actor), "")
	})
	if errors.Is(err, errLostRace) {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow is already being settled")
	}
	if err != nil {
		s.logFailure(ctx, "refund", payment.BookingID, err)
		return nil, err
	}

	s.metrics.IncTransition(string(enums.EscrowStatusRefunded))
	s.notify(ctx, payment.BookingID)
	return payment, nil
}

func (s *service) Get(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	payment, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, translateFindErr(err)
	}
	return payment, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payment *models.EscrowPayment, from enums.EscrowStatus, actor *outbox.ActorRef, completedBy string) error {
	data := StateChangedEvent(payment, from)
	data.CompletedBy = completedBy
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateEscrowPayment,
		AggregateID:   payment.ID,
		Actor:         actor,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

// StateChangedEvent builds the outbox payload describing a transition out of from.
func StateChangedEvent(payment *models.EscrowPayment, from enums.EscrowStatus) payloads.EscrowStateChangedEvent {
	return payloads.EscrowStateChangedEvent{
		EscrowPaymentID:      payment.ID,
		BookingID:            payment.BookingID,
		GuestID:              payment.GuestID,
		PhotographerID:       payment.PhotographerID,
		FromStatus:           from,
		EscrowStatus:         payment.EscrowStatus,
		DeliveryStatus:       payment.DeliveryStatus,
		TotalAmount:          payment.TotalAmount,
		PlatformFee:          payment.PlatformFee,
		PhotographerEarnings: payment.PhotographerEarnings,
		Currency:             payment.Currency,
		Gateway:              string(payment.GatewayProvider),
		DisputeReason:        payment.DisputeReason,
		AutoConfirmAt:        payment.AutoConfirmAt,
	}
}

func (s *service) notify(ctx context.Context, bookingID uuid.UUID) {
	if s.onChange != nil {
		s.onChange(ctx, bookingID)
	}
}

func (s *service) now() time.Time {
	return s.clock().UTC()
}

func (s *service) logFailure(ctx context.Context, op string, bookingID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOperation(ctx, op)
	ctx = s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Error(ctx, "escrow operation failed", err)
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.ID, Role: actor.Role}
}

func translateFindErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "escrow payment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow payment")
}

func joinIssues(issues []string) string {
	cleaned := make([]string, 0, len(issues))
	for _, issue := range issues {
		if trimmed := strings.TrimSpace(issue); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "; ")
}
