package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
)

type holdState string

const (
	holdAuthorized holdState = "authorized"
	holdCaptured   holdState = "captured"
	holdCanceled   holdState = "canceled"
)

type fakeHold struct {
	amount   int64
	currency string
	state    holdState
	captured int64
}

// Fake is an in-memory gateway for local runs and tests. It keeps idempotency keys the
// way a real gateway does and counts every Capture call per hold.
type Fake struct {
	mu           sync.Mutex
	holds        map[string]*fakeHold
	keys         map[string]string
	captureCalls map[string]int

	AuthorizeErr error
	CaptureErr   error
	CancelErr    error
	CaptureDelay time.Duration
}

var _ escrow.Gateway = (*Fake)(nil)

// NewFake returns an empty fake gateway.
func NewFake() *Fake {
	return &Fake{
		holds:        map[string]*fakeHold{},
		keys:         map[string]string{},
		captureCalls: map[string]int{},
	}
}

func (f *Fake) Provider() enums.GatewayProvider {
	return enums.GatewayFake
}

func (f *Fake) Authorize(_ context.Context, req escrow.AuthorizeRequest) (*escrow.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AuthorizeErr != nil {
		return nil, f.AuthorizeErr
	}
	if ref, ok := f.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &escrow.Authorization{HoldRef: ref, ClientSecret: ref + "_secret"}, nil
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("fake gateway: amount must be positive")
	}
	ref := "fake_hold_" + uuid.NewString()
	f.holds[ref] = &fakeHold{amount: req.Amount, currency: req.Currency, state: holdAuthorized}
	if req.IdempotencyKey != "" {
		f.keys[req.IdempotencyKey] = ref
	}
	return &escrow.Authorization{HoldRef: ref, ClientSecret: ref + "_secret"}, nil
}

func (f *Fake) Capture(_ context.Context, req escrow.CaptureRequest) error {
	if f.CaptureDelay > 0 {
		time.Sleep(f.CaptureDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captureCalls[req.HoldRef]++
	if f.CaptureErr != nil {
		return f.CaptureErr
	}
	hold, ok := f.holds[req.HoldRef]
	if !ok {
		return fmt.Errorf("fake gateway: unknown hold %s", req.HoldRef)
	}
	switch hold.state {
	case holdCaptured:
		return nil
	case holdCanceled:
		return fmt.Errorf("fake gateway: hold %s was canceled", req.HoldRef)
	}
	if req.Amount > hold.amount {
		return fmt.Errorf("fake gateway: capture %d exceeds hold %d", req.Amount, hold.amount)
	}
	hold.state = holdCaptured
	hold.captured = req.Amount
	return nil
}

func (f *Fake) Cancel(_ context.Context, holdRef, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CancelErr != nil {
		return f.CancelErr
	}
	hold, ok := f.holds[holdRef]
	if !ok {
		return fmt.Errorf("fake gateway: unknown hold %s", holdRef)
	}
	if hold.state == holdCaptured {
		return fmt.Errorf("fake gateway: hold %s already captured", holdRef)
	}
	hold.state = holdCanceled
	return nil
}

// CaptureCalls reports how many times Capture was invoked for holdRef.
func (f *Fake) CaptureCalls(holdRef string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captureCalls[holdRef]
}

// TotalCaptureCalls sums Capture invocations across every hold.
func (f *Fake) TotalCaptureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.captureCalls {
		total += n
	}
	return total
}

// Captured reports whether the hold's funds were captured.
func (f *Fake) Captured(holdRef string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[holdRef]
	return ok && hold.state == holdCaptured
}

// Amount returns the authorized amount for holdRef.
func (f *Fake) Amount(holdRef string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hold, ok := f.holds[holdRef]; ok {
		return hold.amount
	}
	return 0
}

// CapturedAmount returns what was captured from holdRef, zero when nothing was.
func (f *Fake) CapturedAmount(holdRef string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hold, ok := f.holds[holdRef]; ok {
		return hold.captured
	}
	return 0
}
