package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/router"
	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

func TestProcessHandsEnvelopeToHandler(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestService(t, handler, &stubManager{})
	msg := analyticsMessage(t)

	require.Equal(t, ack, svc.process(context.Background(), msg))
	require.True(t, handler.called)
	require.Equal(t, enums.EventEscrowRefunded, handler.envelope.EventType)
	require.Equal(t, "booking-1", handler.envelope.BookingID)
	require.Equal(t, outbox.PayloadVersion, handler.envelope.Version)
}

func TestProcessAlreadyProcessed(t *testing.T) {
	manager := &stubManager{checkResult: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, manager)

	require.Equal(t, ack, svc.process(context.Background(), analyticsMessage(t)))
	require.False(t, handler.called)
	require.Len(t, manager.checked, 1)
}

func TestProcessIdempotencyFailureNacks(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestService(t, handler, &stubManager{checkErr: errors.New("redis down")})

	require.Equal(t, nack, svc.process(context.Background(), analyticsMessage(t)))
	require.False(t, handler.called)
}

func TestProcessMalformedMessageAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestService(t, handler, manager)

	msg := &gcppubsub.Message{ID: "msg-1", Data: []byte("invalid json")}
	require.Equal(t, ack, svc.process(context.Background(), msg))
	require.False(t, handler.called)
	require.Empty(t, manager.checked)
}

func TestProcessHandlerOutcomes(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		want        verdict
		releasesKey bool
	}{
		{"unsupported type", fmt.Errorf("%w: x", router.ErrUnsupportedEventType), ack, false},
		{"unreadable payload", fmt.Errorf("%w: bad", router.ErrUnreadablePayload), ack, false},
		{"unknown version", fmt.Errorf("%w: v9", router.ErrUnknownVersion), nack, true},
		{"writer failure", errors.New("bigquery down"), nack, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manager := &stubManager{}
			svc := newTestService(t, &stubHandler{err: tc.err}, manager)

			require.Equal(t, tc.want, svc.process(context.Background(), analyticsMessage(t)))
			if tc.releasesKey {
				require.Len(t, manager.deleted, 1)
			} else {
				require.Empty(t, manager.deleted)
			}
		})
	}
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func analyticsMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.PayloadVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"booking_id":"b"}`),
	})
	require.NoError(t, err)
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: data,
		Attributes: map[string]string{
			"event_type":     string(enums.EventEscrowRefunded),
			"aggregate_type": string(enums.AggregateEscrowPayment),
			"aggregate_id":   "abc-123",
			"booking_id":     "booking-1",
		},
	}
}

func newTestService(t *testing.T, handler Handler, manager *stubManager) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	}
}

type stubHandler struct {
	called   bool
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(_ context.Context, envelope types.Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	checked     []string
	deleted     []string
}

func (s *stubManager) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(_ context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}
