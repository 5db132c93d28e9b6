package idempotency_test

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/shootpay-backend/pkg/outbox/idempotency"
)

type setOnceStore map[string]bool

func (s setOnceStore) Get(context.Context, string) (string, error) { return "", nil }

func (s setOnceStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s[key] {
		return false, nil
	}
	s[key] = true
	return true, nil
}

func (s setOnceStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (s setOnceStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s, k)
	}
	return nil
}

func ExampleGuard_CheckAndMark() {
	ctx := context.Background()
	guard, _ := idempotency.NewConsumerGuard(setOnceStore{}, 7*24*time.Hour, "analytics")

	for i := 0; i < 2; i++ {
		seen, _ := guard.CheckAndMark(ctx, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
		fmt.Println(seen)
	}
	// Output:
	// false
	// true
}
