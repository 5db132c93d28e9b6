package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/shootpay-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const maxWebhookBody = 1 << 16

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// delivery is a gateway notification whose signature has been checked.
type delivery struct {
	id     string
	kind   string
	handle func(ctx context.Context) error
}

// verifyFunc authenticates and decodes one raw notification.
type verifyFunc func(payload []byte, header http.Header) (delivery, error)

// receive runs the pipeline shared by every gateway: bounded read, signature check, then
// at-most-once handling keyed by the gateway's event id. A failed run forgets the id so
// the gateway's retry is processed.
func receive(gateway string, verify verifyFunc, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if verify == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, gateway+" webhook not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if len(payload) > maxWebhookBody {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large").
				WithDetails(map[string]any{"limit_bytes": maxWebhookBody}))
			return
		}

		event, err := verify(payload, r.Header)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"gateway":            gateway,
				"gateway_event_id":   event.id,
				"gateway_event_type": event.kind,
			})
		}

		seen, err := guard.CheckAndMark(ctx, event.id)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if seen {
			responses.WriteSuccess(w, map[string]bool{"duplicate": true})
			return
		}

		if err := event.handle(ctx); err != nil {
			if delErr := guard.Delete(ctx, event.id); delErr != nil && logg != nil {
				logg.Error(ctx, "forget webhook event", delErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "webhook event processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
