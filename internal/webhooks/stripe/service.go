package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v81"

	"github.com/angelmondragon/shootpay-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

type holdConfirmer interface {
	ConfirmEscrowPayment(ctx context.Context, holdRef string) types.Result[settlement.EscrowView]
}

type ServiceParams struct {
	Settlement holdConfirmer
	Logger     *logger.Logger
}

// Service turns Stripe payment intent events into escrow transitions.
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

// HandleEvent acknowledges every event it does not act on. A returned error
// asks Stripe to redeliver.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentAmountCapturableUpdated:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		if intent.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
		}
		if intent.Status != stripe.PaymentIntentStatusRequiresCapture {
			s.info(ctx, intent.ID, "payment intent not awaiting capture; ignoring")
			return nil
		}
		return s.confirm(ctx, intent.ID)
	case stripe.EventTypePaymentIntentCanceled, stripe.EventTypePaymentIntentPaymentFailed:
		s.info(ctx, event.GetObjectValue("id"), "payment intent hold released by stripe")
		return nil
	default:
		return nil
	}
}

func (s *Service) confirm(ctx context.Context, holdRef string) error {
	result := s.settlement.ConfirmEscrowPayment(ctx, holdRef)
	if result.Success {
		s.info(ctx, holdRef, "escrow hold confirmed")
		return nil
	}
	switch result.Error.Kind {
	case pkgerrors.KindNotFound, pkgerrors.KindNotEligible, pkgerrors.KindAlreadyProcessed:
		// The hold is not ours or has moved on; redelivery would not change that.
		s.info(ctx, holdRef, "hold confirmation skipped: "+result.Error.Message)
		return nil
	default:
		return result.Err()
	}
}

func (s *Service) info(ctx context.Context, holdRef, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "hold_ref", holdRef), msg)
}
