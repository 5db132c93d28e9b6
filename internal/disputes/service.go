package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	dbpkg "github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shootpay-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type escrowFreezer interface {
	Get(ctx context.Context, bookingID uuid.UUID) (*models.EscrowPayment, error)
	FreezeTx(ctx context.Context, tx *gorm.DB, input escrow.FreezeInput) (*models.EscrowPayment, error)
}

// CreateDisputeInput is a guest's formal complaint about a booking.
type CreateDisputeInput struct {
	BookingID           uuid.UUID               `json:"booking_id" validate:"required"`
	Actor               escrow.Actor            `json:"-"`
	Reason              enums.DisputeReason     `json:"reason" validate:"required,oneof=QUALITY NOT_DELIVERED INCOMPLETE LATE NOT_AS_DESCRIBED OTHER"`
	Description         string                  `json:"description" validate:"required,min=10,max=5000"`
	EvidenceURLs        []string                `json:"evidence_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	RequestedResolution enums.DisputeResolution `json:"requested_resolution" validate:"required,oneof=FULL_REFUND PARTIAL_REFUND REDELIVERY OTHER"`
}

// Service files disputes and freezes the escrow they concern.
type Service interface {
	CreateDispute(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error)
	GetDispute(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*models.Dispute, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	escrow   escrowFreezer
	logg     *logger.Logger
	onChange escrow.StateChangeHook
}

// ServiceParams names the collaborators of the dispute handler.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Escrow        escrowFreezer
	Logger        *logger.Logger
	OnStateChange escrow.StateChangeHook
}

// NewService builds the dispute handler.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("disputes repository required")
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
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		escrow:   params.Escrow,
		logg:     params.Logger,
		onChange: params.OnStateChange,
	}, nil
}

func (s *service) CreateDispute(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error) {
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input.Description = strings.TrimSpace(input.Description)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.escrow.FreezeTx(ctx, tx, escrow.FreezeInput{
			BookingID: input.BookingID,
			Reason:    disputeReason(input),
			Actor:     input.Actor,
		})
		if err != nil {
			return err
		}

		dispute = &models.Dispute{
			ID:                  uuid.New(),
			BookingID:           payment.BookingID,
			EscrowPaymentID:     payment.ID,
			RaisedBy:            input.Actor.ID,
			Reason:              input.Reason,
			Description:         input.Description,
			EvidenceURLs:        pq.StringArray(input.EvidenceURLs),
			RequestedResolution: input.RequestedResolution,
			Status:              enums.DisputeStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, dispute); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "dispute already filed for booking")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		return s.emit(ctx, tx, dispute, input.Actor)
	})
	if err != nil {
		if !pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed) {
			s.logFailure(ctx, input.BookingID, err)
		}
		return nil, err
	}

	if s.onChange != nil {
		s.onChange(ctx, input.BookingID)
	}
	return dispute, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, dispute *models.Dispute, actor escrow.Actor) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDisputeCreated,
		AggregateType: enums.AggregateDispute,
		AggregateID:   dispute.ID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: actor.Role},
		Data: payloads.DisputeCreatedEvent{
			DisputeID:           dispute.ID,
			EscrowPaymentID:     dispute.EscrowPaymentID,
			BookingID:           dispute.BookingID,
			RaisedBy:            dispute.RaisedBy,
			Reason:              dispute.Reason,
			RequestedResolution: dispute.RequestedResolution,
			EvidenceCount:       len(dispute.EvidenceURLs),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit dispute created")
	}
	return nil
}

func (s *service) GetDispute(ctx context.Context, bookingID uuid.UUID, actor escrow.Actor) (*models.Dispute, error) {
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
	dispute, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

func (s *service) logFailure(ctx context.Context, bookingID uuid.UUID, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOperation(ctx, "create_dispute")
	ctx = s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Error(ctx, "dispute operation failed", err)
}

// disputeReason is the short form stored on the escrow row.
func disputeReason(input CreateDisputeInput) string {
	return fmt.Sprintf("%s: %s", input.Reason, input.Description)
}
