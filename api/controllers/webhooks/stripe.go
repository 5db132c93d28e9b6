package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type signingClient interface {
	SigningSecret() string
}

// StripeWebhook confirms escrow holds from Stripe payment intent events.
func StripeWebhook(svc StripeWebhookService, client signingClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	var verify verifyFunc
	if svc != nil && client != nil {
		verify = func(payload []byte, header http.Header) (delivery, error) {
			sig := header.Get("Stripe-Signature")
			if sig == "" {
				return delivery{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "stripe signature missing")
			}
			// Signature tolerance is the library default of five minutes.
			event, err := webhook.ConstructEventWithOptions(payload, sig, client.SigningSecret(), webhook.ConstructEventOptions{
				IgnoreAPIVersionMismatch: true,
			})
			if err != nil {
				return delivery{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify stripe signature")
			}
			return delivery{
				id:   event.ID,
				kind: string(event.Type),
				handle: func(ctx context.Context) error {
					return svc.HandleEvent(ctx, &event)
				},
			}, nil
		}
	}
	return receive("stripe", verify, guard, logg)
}
