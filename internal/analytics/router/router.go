package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/registry"
)

var (
	// ErrUnsupportedEventType marks events analytics does not track. They are acked.
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	// ErrUnreadablePayload marks payloads that will never decode. They are acked.
	ErrUnreadablePayload = errors.New("unreadable analytics payload")
	// ErrUnknownVersion marks payload versions this build cannot decode yet. They are nacked
	// so a newer deployment can pick them up.
	ErrUnknownVersion = errors.New("unknown analytics payload version")
)

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertEscrowEvent(ctx context.Context, row types.EscrowEventRow) error
}

// Handler receives an envelope plus its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type decoder interface {
	Supports(eventType enums.OutboxEventType) bool
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

// Router decodes escrow events by type and version and hands them to a handler.
type Router struct {
	decoders decoder
	handlers map[enums.OutboxEventType]Handler
	fallback Handler
}

// NewRouter writes every tracked escrow event to BigQuery. overrides replace the row writer
// for individual event types.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	handlers := make(map[enums.OutboxEventType]Handler, len(overrides))
	for eventType, handler := range overrides {
		if handler != nil {
			handlers[eventType] = handler
		}
	}
	return &Router{
		decoders: registry.NewEscrowDecoders(),
		handlers: handlers,
		fallback: &rowHandler{writer: writer, logg: logg},
	}, nil
}

// Handle decodes the envelope payload and dispatches it.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	if !r.decoders.Supports(envelope.EventType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrUnreadablePayload, envelope.EventType)
	}
	payload, err := r.decoders.Decode(envelope.EventType, envelope.Version, envelope.Payload)
	switch {
	case errors.Is(err, registry.ErrNoDecoder):
		return fmt.Errorf("%w: %v", ErrUnknownVersion, err)
	case err != nil:
		return fmt.Errorf("%w: decode %s: %v", ErrUnreadablePayload, envelope.EventType, err)
	}

	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		handler = r.fallback
	}
	return handler.Handle(ctx, envelope, payload)
}
