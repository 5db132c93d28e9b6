package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	squarewebhook "github.com/angelmondragon/shootpay-backend/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
)

const (
	stripeSecret   = "whsec_test"
	squareKey      = "sq-signature-key"
	squareHookURL  = "https://api.shootpay.test/api/v1/webhooks/square"
	stripeHookPath = "/api/v1/webhooks/stripe"
)

type memoryGuard struct {
	mu      sync.Mutex
	seen    map[string]bool
	deletes int
	err     error
}

func newMemoryGuard() *memoryGuard { return &memoryGuard{seen: map[string]bool{}} }

func (g *memoryGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes++
	delete(g.seen, id)
	return nil
}

type signer struct{ secret, url string }

func (s signer) SigningSecret() string   { return s.secret }
func (s signer) NotificationURL() string { return s.url }

type recordingStripe struct {
	calls []stripe.EventType
	err   error
}

func (r *recordingStripe) HandleEvent(_ context.Context, event *stripe.Event) error {
	r.calls = append(r.calls, event.Type)
	return r.err
}

type recordingSquare struct {
	events []*squarewebhook.SquareWebhookEvent
	err    error
}

func (r *recordingSquare) HandleEvent(_ context.Context, event *squarewebhook.SquareWebhookEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func stripeEvent(t *testing.T) []byte {
	t.Helper()
	intent, err := json.Marshal(&stripe.PaymentIntent{
		ID:            "pi_" + uuid.NewString(),
		Status:        stripe.PaymentIntentStatusRequiresCapture,
		CaptureMethod: stripe.PaymentIntentCaptureMethodManual,
		Amount:        25000,
		Currency:      stripe.CurrencyUSD,
	})
	require.NoError(t, err)
	payload, err := json.Marshal(&stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypePaymentIntentAmountCapturableUpdated,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: intent},
	})
	require.NoError(t, err)
	return payload
}

func stripeSignature(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func squareEvent(t *testing.T, eventID, status string) []byte {
	t.Helper()
	paymentID := "sq_" + uuid.NewString()
	payload, err := json.Marshal(&squarewebhook.SquareWebhookEvent{
		EventID: eventID,
		Type:    "payment.updated",
		Data: squarewebhook.SquareWebhookData{
			Type: "payment",
			ID:   paymentID,
			Object: squarewebhook.SquareWebhookObject{
				Payment: &squarewebhook.SquarePayment{ID: paymentID, Status: status},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func squareSignature(payload []byte, url, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(url))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func post(h http.Handler, path string, payload []byte, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func responseCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func TestStripeWebhookProcessesEachEventOnce(t *testing.T) {
	svc := &recordingStripe{}
	handler := StripeWebhook(svc, signer{secret: stripeSecret}, newMemoryGuard(), nil)
	payload := stripeEvent(t)
	sig := stripeSignature(payload, stripeSecret, time.Now())

	first := post(handler, stripeHookPath, payload, "Stripe-Signature", sig)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Contains(t, first.Body.String(), `"received":true`)

	dup := post(handler, stripeHookPath, payload, "Stripe-Signature", sig)
	require.Equal(t, http.StatusOK, dup.Code)
	assert.Contains(t, dup.Body.String(), `"duplicate":true`)

	assert.Equal(t, []stripe.EventType{stripe.EventTypePaymentIntentAmountCapturableUpdated}, svc.calls)
}

func TestStripeWebhookRejectsBadSignatures(t *testing.T) {
	payload := stripeEvent(t)
	cases := map[string]string{
		"missing":      "",
		"garbage":      "t=1,v1=invalid",
		"wrong secret": stripeSignature(payload, "whsec_other", time.Now()),
		"stale":        stripeSignature(payload, stripeSecret, time.Now().Add(-time.Hour)),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &recordingStripe{}
			handler := StripeWebhook(svc, signer{secret: stripeSecret}, newMemoryGuard(), nil)
			header := "Stripe-Signature"
			if sig == "" {
				header = ""
			}
			rec := post(handler, stripeHookPath, payload, header, sig)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, string(pkgerrors.CodeUnauthorized), responseCode(t, rec))
			assert.Empty(t, svc.calls)
		})
	}
}

func TestWebhookFailureForgetsEvent(t *testing.T) {
	svc := &recordingStripe{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newMemoryGuard()
	handler := StripeWebhook(svc, signer{secret: stripeSecret}, guard, nil)
	payload := stripeEvent(t)
	sig := stripeSignature(payload, stripeSecret, time.Now())

	for i := 0; i < 2; i++ {
		rec := post(handler, stripeHookPath, payload, "Stripe-Signature", sig)
		assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
	}
	assert.Len(t, svc.calls, 2)
	assert.Equal(t, 2, guard.deletes)
	assert.Empty(t, guard.seen)
}

func TestWebhookGuardFailure(t *testing.T) {
	svc := &recordingStripe{}
	guard := newMemoryGuard()
	guard.err = errors.New("redis down")
	handler := StripeWebhook(svc, signer{secret: stripeSecret}, guard, nil)
	payload := stripeEvent(t)

	rec := post(handler, stripeHookPath, payload, "Stripe-Signature", stripeSignature(payload, stripeSecret, time.Now()))
	assert.Equal(t, string(pkgerrors.CodeDependency), responseCode(t, rec))
	assert.Empty(t, svc.calls)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	svc := &recordingStripe{}
	handler := StripeWebhook(svc, signer{secret: stripeSecret}, newMemoryGuard(), nil)
	payload := []byte(`{"id":"evt_1","pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`)

	rec := post(handler, stripeHookPath, payload, "Stripe-Signature", stripeSignature(payload, stripeSecret, time.Now()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestWebhookNotConfigured(t *testing.T) {
	for name, handler := range map[string]http.Handler{
		"stripe without service": StripeWebhook(nil, signer{secret: stripeSecret}, newMemoryGuard(), nil),
		"square without guard":   SquareWebhook(&recordingSquare{}, signer{secret: squareKey, url: squareHookURL}, nil, nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec := post(handler, "/", []byte(`{}`), "", "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
}

func TestSquareWebhook(t *testing.T) {
	eventID := "evt_" + uuid.NewString()
	payload := squareEvent(t, eventID, "APPROVED")

	t.Run("processes once", func(t *testing.T) {
		svc := &recordingSquare{}
		handler := SquareWebhook(svc, signer{secret: squareKey, url: squareHookURL}, newMemoryGuard(), nil)
		sig := squareSignature(payload, squareHookURL, squareKey)

		for i := 0; i < 2; i++ {
			rec := post(handler, "/api/v1/webhooks/square", payload, squareSignatureHeader, sig)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}
		require.Len(t, svc.events, 1)
		assert.Equal(t, eventID, svc.events[0].EventID)
		assert.Equal(t, "APPROVED", svc.events[0].Data.Object.Payment.Status)
	})

	t.Run("signature covers notification url", func(t *testing.T) {
		svc := &recordingSquare{}
		handler := SquareWebhook(svc, signer{secret: squareKey, url: squareHookURL}, newMemoryGuard(), nil)
		sig := squareSignature(payload, "https://elsewhere.test/hook", squareKey)

		rec := post(handler, "/api/v1/webhooks/square", payload, squareSignatureHeader, sig)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.events)
	})

	t.Run("missing signature", func(t *testing.T) {
		handler := SquareWebhook(&recordingSquare{}, signer{secret: squareKey, url: squareHookURL}, newMemoryGuard(), nil)
		rec := post(handler, "/api/v1/webhooks/square", payload, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("falls back to object id", func(t *testing.T) {
		svc := &recordingSquare{}
		guard := newMemoryGuard()
		handler := SquareWebhook(svc, signer{secret: squareKey, url: squareHookURL}, guard, nil)
		anonymous := squareEvent(t, "", "COMPLETED")

		rec := post(handler, "/api/v1/webhooks/square", anonymous, squareSignatureHeader, squareSignature(anonymous, squareHookURL, squareKey))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, svc.events, 1)
		assert.True(t, guard.seen[svc.events[0].Data.ID])
	})

	t.Run("undecodable body", func(t *testing.T) {
		body := []byte(`not json`)
		handler := SquareWebhook(&recordingSquare{}, signer{secret: squareKey, url: squareHookURL}, newMemoryGuard(), nil)
		rec := post(handler, "/api/v1/webhooks/square", body, squareSignatureHeader, squareSignature(body, squareHookURL, squareKey))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSquareSignatureMatches(t *testing.T) {
	body := []byte(`{"event_id":"e"}`)
	sig := squareSignature(body, squareHookURL, squareKey)

	assert.True(t, squareSignatureMatches(body, squareHookURL, squareKey, sig))
	assert.False(t, squareSignatureMatches(body, squareHookURL, "", sig))
	assert.False(t, squareSignatureMatches(append(body, ' '), squareHookURL, squareKey, sig))
}
