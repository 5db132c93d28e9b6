package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
)

const (
	defaultMaxRetries     = 2
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls where rows go and how hard inserts are retried.
type Config struct {
	EscrowTable string
	RetryPolicy RetryPolicy
}

// RetryPolicy bounds retries of transient BigQuery failures. MaxRetries counts retries
// after the first attempt.
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries == 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(defaultMaximumBackoff, p.InitialBackoff)
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialBackoff)
	b = retry.WithCappedDuration(p.MaximumBackoff, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

type tableInserter interface {
	Insert(ctx context.Context, table string, rows []bigquery.ValueSaver) error
}

// BigQueryWriter streams one escrow event row per call. It holds no buffer, so concurrent
// Pub/Sub callbacks can share it.
type BigQueryWriter struct {
	client      tableInserter
	escrowTable string
	retry       RetryPolicy
}

func New(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.EscrowTable)
	if table == "" {
		return nil, errors.New("escrow events table is required")
	}
	return &BigQueryWriter{
		client:      client,
		escrowTable: table,
		retry:       cfg.RetryPolicy.withDefaults(),
	}, nil
}

// InsertEscrowEvent writes row, retrying transient failures with capped exponential backoff.
func (w *BigQueryWriter) InsertEscrowEvent(ctx context.Context, row types.EscrowEventRow) error {
	rows := []bigquery.ValueSaver{&row}
	err := retry.Do(ctx, w.retry.backoff(), func(ctx context.Context) error {
		err := w.client.Insert(ctx, w.escrowTable, rows)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %s row %s: %w", w.escrowTable, row.EventID, err)
	}
	return nil
}

// isRetryable reports whether every underlying failure is transient. One permanent row
// error makes the whole insert permanent.
func isRetryable(err error) bool {
	var rowErrs bigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		if len(rowErrs) == 0 {
			return false
		}
		for _, rowErr := range rowErrs {
			if !allRetryable(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var multi bigquery.MultiError
	if errors.As(err, &multi) {
		return allRetryable(multi)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableHTTP(apiErr.Code)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return retryableGRPC(st.Code())
	}
	return false
}

func allRetryable(errs bigquery.MultiError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, inner := range errs {
		if !isRetryable(inner) {
			return false
		}
	}
	return true
}

func retryableHTTP(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryableGRPC(code codes.Code) bool {
	switch code {
	case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
		return true
	}
	return false
}

// EncodeJSON prepares a payload for the JSON payload column. Empty input stays NULL.
func EncodeJSON(payload any) (bigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
		return bigquery.NullJSON{}, nil
	case bigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		marshaled, err := json.Marshal(payload)
		if err != nil {
			return bigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = marshaled
	}
	if len(raw) == 0 {
		return bigquery.NullJSON{}, nil
	}
	return bigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
