package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

var ErrMalformedEnvelope = errors.New("malformed escrow event envelope")

// Envelope is an escrow event as received from Pub/Sub: routing metadata from the message
// attributes plus the stored payload envelope from the message body.
type Envelope struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	BookingID     string
	Version       int
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}

// ParseMessage builds an Envelope from a Pub/Sub message body and its attributes. Body
// values win over attributes when both are present.
func ParseMessage(data []byte, attrs map[string]string) (Envelope, error) {
	stored, err := outbox.DecodeEnvelope(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	attr := func(key string) string { return strings.TrimSpace(attrs[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: event_type: %v", ErrMalformedEnvelope, err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: aggregate_type: %v", ErrMalformedEnvelope, err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return Envelope{}, fmt.Errorf("%w: aggregate_id missing", ErrMalformedEnvelope)
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = attr("event_id")
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: event_id %q", ErrMalformedEnvelope, rawID)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		BookingID:     attr("booking_id"),
		Version:       stored.Version,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       stored.Data,
	}, nil
}
