package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateEscrowPayment OutboxAggregateType = "escrow_payment"
	AggregatePhotoDelivery OutboxAggregateType = "photo_delivery"
	AggregateDispute       OutboxAggregateType = "dispute"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateEscrowPayment,
	AggregatePhotoDelivery,
	AggregateDispute,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventEscrowHoldCreated     OutboxEventType = "escrow_hold_created"
	EventEscrowAuthorized      OutboxEventType = "escrow_authorized"
	EventEscrowPhotosDelivered OutboxEventType = "escrow_photos_delivered"
	EventEscrowCompleted       OutboxEventType = "escrow_completed"
	EventEscrowDisputed        OutboxEventType = "escrow_disputed"
	EventEscrowRefunded        OutboxEventType = "escrow_refunded"
	EventDisputeCreated        OutboxEventType = "dispute_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventEscrowHoldCreated,
	EventEscrowAuthorized,
	EventEscrowPhotosDelivered,
	EventEscrowCompleted,
	EventEscrowDisputed,
	EventEscrowRefunded,
	EventDisputeCreated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
