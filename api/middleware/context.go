package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

type actorKey struct{}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// WithActor stores actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller seeded by Auth. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}
