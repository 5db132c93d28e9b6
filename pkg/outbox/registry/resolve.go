package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/config"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

// NonRetryableError marks a row the relay must dead-letter instead of retrying.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// EventDescriptor is where an event type is published and which aggregate owns it.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row checked against its descriptor with the payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

var aggregates = map[enums.OutboxEventType]enums.OutboxAggregateType{
	enums.EventEscrowHoldCreated:     enums.AggregateEscrowPayment,
	enums.EventEscrowAuthorized:      enums.AggregateEscrowPayment,
	enums.EventEscrowCompleted:       enums.AggregateEscrowPayment,
	enums.EventEscrowDisputed:        enums.AggregateEscrowPayment,
	enums.EventEscrowRefunded:        enums.AggregateEscrowPayment,
	enums.EventEscrowPhotosDelivered: enums.AggregatePhotoDelivery,
	enums.EventDisputeCreated:        enums.AggregateDispute,
}

// EventRegistry resolves outbox rows for the relay. Every settlement event goes to the
// escrow topic; payloads decode through the same versioned decoders consumers use.
type EventRegistry struct {
	topic    string
	decoders *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EscrowTopic == "" {
		return nil, errors.New("escrow topic is required")
	}
	return &EventRegistry{topic: cfg.EscrowTopic, decoders: NewEscrowDecoders()}, nil
}

// Descriptor returns the routing for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	aggregate, ok := aggregates[eventType]
	if !ok {
		return EventDescriptor{}, false
	}
	return EventDescriptor{EventType: eventType, AggregateType: aggregate, Topic: r.topic}, true
}

// Resolve validates a row and decodes its payload. Malformed rows come back as
// NonRetryableError. A payload version this build cannot decode is left retryable so a
// newer replica can relay it.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Descriptor(event.EventType)
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: %s belongs to %s, row says %s",
			event.EventType, desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	switch {
	case errors.Is(err, ErrNoDecoder):
		return nil, err
	case err != nil:
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
