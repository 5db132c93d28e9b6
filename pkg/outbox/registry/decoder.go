package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox/payloads"
)

// ErrNoDecoder is returned when no decoder handles an event type at the requested version.
var ErrNoDecoder = errors.New("decoder not registered")

type decoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a payload decoder. Consumers
// keep decoding old versions after producers move on.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

// NewEscrowDecoders registers the current payload shape of every settlement event.
func NewEscrowDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventEscrowHoldCreated,
		enums.EventEscrowAuthorized,
		enums.EventEscrowCompleted,
		enums.EventEscrowDisputed,
		enums.EventEscrowRefunded,
	} {
		reg.Register(eventType, outbox.PayloadVersion, decodeInto[payloads.EscrowStateChangedEvent])
	}
	reg.Register(enums.EventEscrowPhotosDelivered, outbox.PayloadVersion, decodeInto[payloads.PhotosDeliveredEvent])
	reg.Register(enums.EventDisputeCreated, outbox.PayloadVersion, decodeInto[payloads.DisputeCreatedEvent])
	return reg
}

// Register stores a decoder, replacing any previous one for the same key.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

// Supports reports whether any version of eventType can be decoded.
func (r *DecoderRegistry) Supports(eventType enums.OutboxEventType) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	for key := range r.decoders {
		if key.eventType == eventType {
			return true
		}
	}
	return false
}

// Decode runs the decoder for eventType@version. A zero version is read as the first one.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	if version == 0 {
		version = 1
	}
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrNoDecoder, eventType, version)
	}
	return decoder(payload)
}

func decodeInto[T any](payload json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
