package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired   = errors.New("square access token is required")
	errLocationRequired      = errors.New("square location id is required")
	errWebhookSecretRequired = errors.New("square webhook signature key is required")
	errInvalidSquareEnv      = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var sensitiveKeys = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone", "source"}

// Client wraps the Square payments API used for escrow holds. Every call is logged with
// sensitive fields redacted and SDK errors are mapped onto domain codes.
type Client struct {
	sdk           *sqclient.Client
	environment   string
	locationID    string
	webhookSecret string
	webhookURL    string
	logger        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Env)
	if err != nil {
		return nil, err
	}
	required := []struct {
		value string
		err   error
	}{
		{cfg.AccessToken, errAccessTokenRequired},
		{cfg.LocationID, errLocationRequired},
		{cfg.WebhookKey, errWebhookSecretRequired},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, r.err
		}
	}

	c := &Client{
		sdk: sqclient.NewClient(
			sqoption.WithBaseURL(baseURLs[env]),
			sqoption.WithToken(strings.TrimSpace(cfg.AccessToken)),
		),
		environment:   env,
		locationID:    strings.TrimSpace(cfg.LocationID),
		webhookSecret: strings.TrimSpace(cfg.WebhookKey),
		webhookURL:    strings.TrimSpace(cfg.WebhookURL),
		logger:        logg,
	}
	logg.Info(logg.WithField(ctx, "environment", env), "square client initialized")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret is the webhook signature key.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NotificationURL is the public webhook URL Square signs along with the body.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.webhookURL
}

// NewIdempotencyKey returns prefix-<uuid>. Square caps keys at 45 characters, so prefixes
// stay short.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "sp"
	}
	return key + "-" + uuid.NewString()
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

// paymentCall runs one Payments API request with request/response logging and error
// mapping.
func (c *Client) paymentCall(ctx context.Context, op string, fields map[string]any, do func(context.Context) (*sq.Payment, error)) (*sq.Payment, error) {
	ctx = c.logger.WithFields(ctx, c.redacted(op, fields))
	c.logger.Debug(ctx, "square request")

	payment, err := do(ctx)
	if err != nil {
		mapped := c.mapSquareError(err, op)
		c.logger.Error(ctx, "square request failed", mapped)
		return nil, mapped
	}
	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"payment_id":     deref(payment.GetID()),
		"payment_status": deref(payment.GetStatus()),
	}), "square request completed")
	return payment, nil
}

// CreatePayment opens a payment at the configured location unless params names another.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	req := params.toSquareRequest(c.ensureIdempotencyKey("hold", params.IdempotencyKey))
	return c.paymentCall(ctx, "create_payment", map[string]any{
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount":       params.AmountCents,
		"buyer_email":  params.BuyerEmail,
		"autocomplete": params.Autocomplete,
	}, func(ctx context.Context) (*sq.Payment, error) {
		resp, err := c.sdk.Payments.Create(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.GetPayment(), nil
	})
}

// CompletePayment captures an approved payment for its authorized amount.
func (c *Client) CompletePayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	return c.paymentCall(ctx, "complete_payment", map[string]any{"payment_id": paymentID},
		func(ctx context.Context) (*sq.Payment, error) {
			resp, err := c.sdk.Payments.Complete(ctx, &sq.CompletePaymentRequest{PaymentID: paymentID})
			if err != nil {
				return nil, err
			}
			return resp.GetPayment(), nil
		})
}

// CancelPayment voids an approved payment that was never completed.
func (c *Client) CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	return c.paymentCall(ctx, "cancel_payment", map[string]any{"payment_id": paymentID},
		func(ctx context.Context) (*sq.Payment, error) {
			resp, err := c.sdk.Payments.Cancel(ctx, &sq.CancelPaymentsRequest{PaymentID: paymentID})
			if err != nil {
				return nil, err
			}
			return resp.GetPayment(), nil
		})
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	return c.paymentCall(ctx, "get_payment", map[string]any{"payment_id": paymentID},
		func(ctx context.Context) (*sq.Payment, error) {
			resp, err := c.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: paymentID})
			if err != nil {
				return nil, err
			}
			return resp.GetPayment(), nil
		})
}

func (c *Client) redacted(op string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	out["square_operation"] = op
	for k, v := range fields {
		out[k] = redact(k, v)
	}
	return out
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// mapSquareError maps an SDK failure onto a domain code. Reused idempotency keys surface
// as conflicts and authentication failures as unauthorized regardless of HTTP status.
func (c *Client) mapSquareError(err error, op string) error {
	message := fmt.Sprintf("square %s failed", strings.ReplaceAll(op, "_", " "))
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, message)
	}
	code := domainCodeForStatus(apiErr.StatusCode)
	for _, sqErr := range extractSquareErrors(apiErr) {
		switch {
		case sqErr == nil:
			continue
		case sqErr.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, message)
		case sqErr.Category == sq.ErrorCategoryAuthenticationError:
			return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, message)
		}
	}
	return pkgerrors.Wrap(code, err, message)
}

// extractSquareErrors decodes the errors array Square returns in the response body.
func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	return body.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest, http.StatusPaymentRequired:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		return pkgerrors.CodeGateway
	}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	switch env {
	case "":
		return sandboxEnv, nil
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
