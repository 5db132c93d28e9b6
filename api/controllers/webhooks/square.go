package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	squarewebhook "github.com/angelmondragon/shootpay-backend/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const squareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error
}

type squareSigningClient interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook confirms escrow holds from Square payment events.
func SquareWebhook(svc SquareWebhookService, client squareSigningClient, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	var verify verifyFunc
	if svc != nil && client != nil {
		verify = func(payload []byte, header http.Header) (delivery, error) {
			sig := header.Get(squareSignatureHeader)
			if sig == "" {
				return delivery{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "square signature missing")
			}
			if !squareSignatureMatches(payload, client.NotificationURL(), client.SigningSecret(), sig) {
				return delivery{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid square signature")
			}

			var event squarewebhook.SquareWebhookEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return delivery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event")
			}
			id := strings.TrimSpace(event.EventID)
			if id == "" {
				id = event.Data.ID
			}
			if id == "" {
				return delivery{}, pkgerrors.New(pkgerrors.CodeValidation, "event id missing")
			}
			return delivery{
				id:   id,
				kind: event.Type,
				handle: func(ctx context.Context) error {
					return svc.HandleEvent(ctx, &event)
				},
			}, nil
		}
	}
	return receive("square", verify, guard, logg)
}

// The signature is base64 HMAC-SHA256 over the notification URL followed by the raw body.
func squareSignatureMatches(payload []byte, notificationURL, key, sig string) bool {
	if key == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(sig))
}
