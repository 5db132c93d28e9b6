package squarewebhook

import (
	"context"
	"strings"

	"github.com/angelmondragon/shootpay-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

const squarePaymentApproved = "APPROVED"

type holdConfirmer interface {
	ConfirmEscrowPayment(ctx context.Context, holdRef string) types.Result[settlement.EscrowView]
}

type ServiceParams struct {
	Settlement holdConfirmer
	Logger     *logger.Logger
}

// Service turns Square payment events into escrow transitions.
type Service struct {
	settlement holdConfirmer
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	return &Service{settlement: params.Settlement, logg: params.Logger}, nil
}

type SquareWebhookEvent struct {
	EventID    string            `json:"event_id"`
	MerchantID string            `json:"merchant_id"`
	Type       string            `json:"type"`
	Data       SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment is the subset of the Square payment object the handler reads.
type SquarePayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

// HandleEvent confirms holds once Square reports the card as approved.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		payment := event.Data.Object.Payment
		if payment == nil || payment.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		if !strings.EqualFold(payment.Status, squarePaymentApproved) {
			return nil
		}
		return s.confirm(ctx, payment)
	default:
		return nil
	}
}

func (s *Service) confirm(ctx context.Context, payment *SquarePayment) error {
	result := s.settlement.ConfirmEscrowPayment(ctx, payment.ID)
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"hold_ref":   payment.ID,
			"booking_id": payment.ReferenceID,
		})
	}
	if result.Success {
		if s.logg != nil {
			s.logg.Info(logCtx, "escrow hold confirmed")
		}
		return nil
	}
	switch result.Error.Kind {
	case pkgerrors.KindNotFound, pkgerrors.KindNotEligible, pkgerrors.KindAlreadyProcessed:
		if s.logg != nil {
			s.logg.Info(logCtx, "hold confirmation skipped: "+result.Error.Message)
		}
		return nil
	default:
		return result.Err()
	}
}
