package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
)

func TestEscrowDecodersCoverEveryEvent(t *testing.T) {
	reg := NewEscrowDecoders()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventEscrowHoldCreated,
		enums.EventEscrowAuthorized,
		enums.EventEscrowCompleted,
		enums.EventEscrowDisputed,
		enums.EventEscrowRefunded,
		enums.EventEscrowPhotosDelivered,
		enums.EventDisputeCreated,
	} {
		require.True(t, reg.Supports(eventType), eventType)
	}
	require.False(t, reg.Supports(enums.OutboxEventType("order_created")))
}

func TestDecodeTypedPayload(t *testing.T) {
	reg := NewEscrowDecoders()
	bookingID := uuid.New()
	raw, err := json.Marshal(payloads.EscrowStateChangedEvent{BookingID: bookingID, EscrowStatus: enums.EscrowStatusCompleted})
	require.NoError(t, err)

	out, err := reg.Decode(enums.EventEscrowCompleted, 0, raw)
	require.NoError(t, err)
	event, ok := out.(*payloads.EscrowStateChangedEvent)
	require.True(t, ok)
	require.Equal(t, bookingID, event.BookingID)
	require.Equal(t, enums.EscrowStatusCompleted, event.EscrowStatus)
}

func TestDecodeUnknownVersion(t *testing.T) {
	reg := NewEscrowDecoders()
	_, err := reg.Decode(enums.EventEscrowCompleted, 7, json.RawMessage(`{}`))
	require.True(t, errors.Is(err, ErrNoDecoder))
}

func TestRegisterOverridesDecoder(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventDisputeCreated, 2, func(payload json.RawMessage) (any, error) {
		return string(payload), nil
	})

	out, err := reg.Decode(enums.EventDisputeCreated, 2, json.RawMessage(`"v2"`))
	require.NoError(t, err)
	require.Equal(t, `"v2"`, out)
}
