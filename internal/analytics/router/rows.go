package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/shootpay-backend/internal/analytics/writer"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
)

// rowHandler flattens any escrow payload into an escrow_events row.
type rowHandler struct {
	writer Writer
	logg   *logger.Logger
}

func (h *rowHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	row, err := buildRow(envelope, payload)
	if err != nil {
		return err
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"booking_id":    row.BookingID,
		"escrow_status": deref(row.EscrowStatus),
	})
	if err := h.writer.InsertEscrowEvent(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert escrow event row", err)
		return err
	}
	h.logg.Info(logCtx, "escrow event row inserted")
	return nil
}

func buildRow(envelope types.Envelope, payload any) (types.EscrowEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.EscrowEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	row := types.EscrowEventRow{
		EventID:       envelope.EventID.String(),
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		OccurredAt:    envelope.OccurredAt,
		BookingID:     envelope.BookingID,
		Payload:       payloadJSON,
	}
	if envelope.Actor != nil {
		row.ActorID = uuidPtr(envelope.Actor.UserID)
	}

	switch event := payload.(type) {
	case *payloads.EscrowStateChangedEvent:
		applyTransition(&row, event)
	case *payloads.PhotosDeliveredEvent:
		applyTransition(&row, &event.EscrowStateChangedEvent)
		row.PhotoCount = int64Ptr(int64(event.PhotoCount))
	case *payloads.DisputeCreatedEvent:
		row.BookingID = event.BookingID.String()
		row.EscrowPaymentID = uuidPtr(event.EscrowPaymentID)
		row.GuestID = uuidPtr(event.RaisedBy)
		row.DisputeReason = stringPtr(string(event.Reason))
	default:
		return types.EscrowEventRow{}, fmt.Errorf("invalid payload %T for %s", payload, envelope.EventType)
	}
	return row, nil
}

func applyTransition(row *types.EscrowEventRow, event *payloads.EscrowStateChangedEvent) {
	row.BookingID = event.BookingID.String()
	row.EscrowPaymentID = uuidPtr(event.EscrowPaymentID)
	row.GuestID = uuidPtr(event.GuestID)
	row.PhotographerID = uuidPtr(event.PhotographerID)
	row.FromStatus = stringPtr(string(event.FromStatus))
	row.EscrowStatus = stringPtr(string(event.EscrowStatus))
	row.DeliveryStatus = stringPtr(string(event.DeliveryStatus))
	row.TotalAmountCents = int64Ptr(event.TotalAmount)
	row.PlatformFeeCents = int64Ptr(event.PlatformFee)
	row.PhotographerEarningsCents = int64Ptr(event.PhotographerEarnings)
	row.Currency = stringPtr(event.Currency)
	row.Gateway = stringPtr(event.Gateway)
	row.CompletedBy = stringPtr(event.CompletedBy)
	if event.DisputeReason != nil {
		row.DisputeReason = stringPtr(*event.DisputeReason)
	}
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func int64Ptr(value int64) *int64 { return &value }

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
