package types

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// EscrowEventRow is one row of the escrow_events table. Nil columns are written as NULL.
type EscrowEventRow struct {
	EventID                   string
	EventType                 string
	AggregateType             string
	OccurredAt                time.Time
	BookingID                 string
	EscrowPaymentID           *string
	GuestID                   *string
	PhotographerID            *string
	ActorID                   *string
	FromStatus                *string
	EscrowStatus              *string
	DeliveryStatus            *string
	TotalAmountCents          *int64
	PlatformFeeCents          *int64
	PhotographerEarningsCents *int64
	Currency                  *string
	Gateway                   *string
	CompletedBy               *string
	DisputeReason             *string
	PhotoCount                *int64
	Payload                   bigquery.NullJSON
}

var _ bigquery.ValueSaver = (*EscrowEventRow)(nil)

// Save implements bigquery.ValueSaver. The event id doubles as the insert id so a
// redelivered event is deduplicated by the streaming API.
func (r *EscrowEventRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"event_id":                    r.EventID,
		"event_type":                  r.EventType,
		"aggregate_type":              r.AggregateType,
		"occurred_at":                 r.OccurredAt,
		"booking_id":                  r.BookingID,
		"escrow_payment_id":           nullable(r.EscrowPaymentID),
		"guest_id":                    nullable(r.GuestID),
		"photographer_id":             nullable(r.PhotographerID),
		"actor_id":                    nullable(r.ActorID),
		"from_status":                 nullable(r.FromStatus),
		"escrow_status":               nullable(r.EscrowStatus),
		"delivery_status":             nullable(r.DeliveryStatus),
		"total_amount_cents":          nullable(r.TotalAmountCents),
		"platform_fee_cents":          nullable(r.PlatformFeeCents),
		"photographer_earnings_cents": nullable(r.PhotographerEarningsCents),
		"currency":                    nullable(r.Currency),
		"gateway":                     nullable(r.Gateway),
		"completed_by":                nullable(r.CompletedBy),
		"dispute_reason":              nullable(r.DisputeReason),
		"photo_count":                 nullable(r.PhotoCount),
		"payload":                     nil,
	}
	if r.Payload.Valid {
		row["payload"] = r.Payload.JSONVal
	}
	return row, r.EventID, nil
}

func nullable[T any](v *T) bigquery.Value {
	if v == nil {
		return nil
	}
	return *v
}

// EscrowEventsSchema is used to create the table in dev. Production tables are managed
// outside the service.
func EscrowEventsSchema() bigquery.Schema {
	str := func(name string, required bool) *bigquery.FieldSchema {
		return &bigquery.FieldSchema{Name: name, Type: bigquery.StringFieldType, Required: required}
	}
	num := func(name string) *bigquery.FieldSchema {
		return &bigquery.FieldSchema{Name: name, Type: bigquery.IntegerFieldType}
	}
	return bigquery.Schema{
		str("event_id", true),
		str("event_type", true),
		str("aggregate_type", true),
		{Name: "occurred_at", Type: bigquery.TimestampFieldType, Required: true},
		str("booking_id", true),
		str("escrow_payment_id", false),
		str("guest_id", false),
		str("photographer_id", false),
		str("actor_id", false),
		str("from_status", false),
		str("escrow_status", false),
		str("delivery_status", false),
		num("total_amount_cents"),
		num("platform_fee_cents"),
		num("photographer_earnings_cents"),
		str("currency", false),
		str("gateway", false),
		str("completed_by", false),
		str("dispute_reason", false),
		num("photo_count"),
		{Name: "payload", Type: bigquery.JSONFieldType},
	}
}

// EscrowEventsPartitionField partitions escrow_events by day of occurrence.
const EscrowEventsPartitionField = "occurred_at"
