// Package idempotency remembers which event ids a consumer has already handled. Analytics
// consumers and the gateway webhook handlers both rely on it.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shootpay-backend/pkg/redis"
)

// Guard marks ids as seen within one scope for a fixed TTL. Keys are built by the store,
// e.g. sp:idempotency:<scope>:<id>.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case strings.TrimSpace(scope) == "":
		return nil, errors.New("scope is required")
	}
	return &Guard{store: store, ttl: ttl, scope: strings.TrimSpace(scope)}, nil
}

// NewConsumerGuard scopes a guard to one Pub/Sub consumer.
func NewConsumerGuard(store redis.IdempotencyStore, ttl time.Duration, consumer string) (*Guard, error) {
	if strings.TrimSpace(consumer) == "" {
		return nil, errors.New("consumer name is required")
	}
	return NewGuard(store, ttl, "evt:processed:"+strings.TrimSpace(consumer))
}

// CheckAndMark reports whether id was already seen and marks it otherwise.
func (g *Guard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	key, err := g.key(id)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete forgets id so the next delivery is processed again.
func (g *Guard) Delete(ctx context.Context, id string) error {
	key, err := g.key(id)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, id), nil
}
