package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

func TestParseMessage(t *testing.T) {
	eventID := uuid.New()
	occurred := time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)
	body := mustJSON(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: occurred,
		Data:       json.RawMessage(`{"booking_id":"b"}`),
	})

	env, err := ParseMessage(body, map[string]string{
		"event_type":     string(enums.EventEscrowCompleted),
		"aggregate_type": string(enums.AggregateEscrowPayment),
		"aggregate_id":   " agg-1 ",
		"booking_id":     "booking-1",
	})
	require.NoError(t, err)
	require.Equal(t, eventID, env.EventID)
	require.Equal(t, enums.EventEscrowCompleted, env.EventType)
	require.Equal(t, "agg-1", env.AggregateID)
	require.Equal(t, "booking-1", env.BookingID)
	require.Equal(t, 1, env.Version)
	require.True(t, occurred.Equal(env.OccurredAt))
	require.JSONEq(t, `{"booking_id":"b"}`, string(env.Payload))
}

func TestParseMessageFallsBackToAttributes(t *testing.T) {
	eventID := uuid.New()
	created := time.Date(2026, 7, 4, 11, 0, 0, 0, time.UTC)
	env, err := ParseMessage([]byte(`{"data":{}}`), map[string]string{
		"event_id":       eventID.String(),
		"event_type":     string(enums.EventDisputeCreated),
		"aggregate_type": string(enums.AggregateDispute),
		"aggregate_id":   "d-1",
		"created_at":     created.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	require.Equal(t, eventID, env.EventID)
	require.True(t, created.Equal(env.OccurredAt))
	require.Equal(t, outbox.PayloadVersion, env.Version)
}

func TestParseMessageRejectsMalformed(t *testing.T) {
	valid := map[string]string{
		"event_type":     string(enums.EventEscrowRefunded),
		"aggregate_type": string(enums.AggregateEscrowPayment),
		"aggregate_id":   "a",
		"event_id":       uuid.NewString(),
	}
	cases := map[string]struct {
		body  string
		attrs func(map[string]string)
	}{
		"bad body":      {body: `{`},
		"unknown type":  {body: `{"data":{}}`, attrs: func(m map[string]string) { m["event_type"] = "nope" }},
		"no aggregate":  {body: `{"data":{}}`, attrs: func(m map[string]string) { delete(m, "aggregate_id") }},
		"bad event id":  {body: `{"data":{}}`, attrs: func(m map[string]string) { m["event_id"] = "x" }},
		"bad aggregate": {body: `{"data":{}}`, attrs: func(m map[string]string) { m["aggregate_type"] = "booking" }},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			attrs := map[string]string{}
			for k, v := range valid {
				attrs[k] = v
			}
			if tc.attrs != nil {
				tc.attrs(attrs)
			}
			_, err := ParseMessage([]byte(tc.body), attrs)
			require.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestEscrowEventRowSave(t *testing.T) {
	status := "COMPLETED"
	total := int64(20000)
	row := &EscrowEventRow{
		EventID:          "evt-1",
		EventType:        string(enums.EventEscrowCompleted),
		BookingID:        "booking-1",
		EscrowStatus:     &status,
		TotalAmountCents: &total,
	}
	values, insertID, err := row.Save()
	require.NoError(t, err)
	require.Equal(t, "evt-1", insertID)
	require.Equal(t, "COMPLETED", values["escrow_status"])
	require.Equal(t, int64(20000), values["total_amount_cents"])
	require.Nil(t, values["guest_id"])
	require.Nil(t, values["payload"])

	schema := EscrowEventsSchema()
	require.Len(t, values, len(schema))
	for _, field := range schema {
		_, ok := values[field.Name]
		require.True(t, ok, "column %s missing from Save", field.Name)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
