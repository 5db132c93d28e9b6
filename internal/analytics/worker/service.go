package worker

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/shootpay-backend/internal/analytics/router"
	"github.com/angelmondragon/shootpay-backend/internal/analytics/types"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

// ConsumerName scopes the idempotency keys of this worker.
const ConsumerName = "analytics"

const defaultMaxOutstanding = 100

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type idempotencyChecker interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Subscription   *gcppubsub.Subscriber
	Handler        Handler
	Idempotency    idempotencyChecker
	Logger         *logger.Logger
	MaxOutstanding int
}

// Service consumes escrow events from Pub/Sub, skipping events Redis has already seen.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case params.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case params.Idempotency == nil:
		return nil, errors.New("idempotency manager is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	maxOutstanding := params.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = defaultMaxOutstanding
	}
	params.Subscription.ReceiveSettings.MaxOutstandingMessages = maxOutstanding

	return &Service{
		subscription: params.Subscription,
		handler:      params.Handler,
		manager:      params.Idempotency,
		logg:         params.Logger,
	}, nil
}

type verdict int

const (
	ack verdict = iota
	nack
)

// Run receives until ctx is canceled. Callbacks run concurrently.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) verdict {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := types.ParseMessage(msg.Data, msg.Attributes)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       envelope.EventID.String(),
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
		"version":        envelope.Version,
		"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	seen, err := s.manager.CheckAndMark(logCtx, envelope.EventID.String())
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return nack
	}
	if seen {
		s.logg.Info(logCtx, "event already processed")
		return ack
	}

	err = s.handler.Handle(logCtx, envelope)
	switch {
	case err == nil:
		s.logg.Info(logCtx, "analytics event handled")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(logCtx, "analytics event type not tracked")
		return ack
	case errors.Is(err, router.ErrUnreadablePayload):
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "dropping unreadable analytics payload")
		return ack
	default:
		s.logg.Error(logCtx, "analytics handler failed", err)
		if delErr := s.manager.Delete(logCtx, envelope.EventID.String()); delErr != nil {
			s.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return nack
	}
}
