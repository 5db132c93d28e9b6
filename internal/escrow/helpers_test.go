package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/bookings"
	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	dbpkg "github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type stubGateway struct {
	mu             sync.Mutex
	authorizeErr   error
	captureErr     error
	captureErrFor  map[string]error
	cancelErr      error
	captureDelay   time.Duration
	authorizations []AuthorizeRequest
	captureCalls   []CaptureRequest
	captures       []CaptureRequest
	cancels        []string
}

func (g *stubGateway) Provider() enums.GatewayProvider { return enums.GatewayFake }

func (g *stubGateway) Authorize(_ context.Context, req AuthorizeRequest) (*Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorizations = append(g.authorizations, req)
	if g.authorizeErr != nil {
		return nil, g.authorizeErr
	}
	return &Authorization{HoldRef: "hold_" + req.IdempotencyKey, ClientSecret: "secret_" + req.IdempotencyKey}, nil
}

func (g *stubGateway) Capture(_ context.Context, req CaptureRequest) error {
	if g.captureDelay > 0 {
		time.Sleep(g.captureDelay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureCalls = append(g.captureCalls, req)
	if err := g.captureErrFor[req.HoldRef]; err != nil {
		return err
	}
	if g.captureErr != nil {
		return g.captureErr
	}
	g.captures = append(g.captures, req)
	return nil
}

func (g *stubGateway) Cancel(_ context.Context, holdRef, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancels = append(g.cancels, key)
	return nil
}

func (g *stubGateway) captureCount(holdRef string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.captures {
		if c.HoldRef == holdRef {
			n++
		}
	}
	return n
}

func (g *stubGateway) attempts(holdRef string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.captureCalls {
		if c.HoldRef == holdRef {
			n++
		}
	}
	return n
}

func (g *stubGateway) setCaptureErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureErr = err
}

type stubDeliveries struct {
	mu        sync.Mutex
	confirmed []uuid.UUID
}

func (d *stubDeliveries) MarkConfirmedTx(_ context.Context, _ *gorm.DB, bookingID uuid.UUID, _ time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmed = append(d.confirmed, bookingID)
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	db         *gorm.DB
	svc        Service
	repo       Repository
	gateway    *stubGateway
	deliveries *stubDeliveries
	clock      *testClock

	mu      sync.Mutex
	changed []uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, Settings{
		FeeRate:          decimal.RequireFromString("0.10"),
		SweepConcurrency: 4,
	})
}

func newHarnessWith(t *testing.T, settings Settings) *harness {
	t.Helper()

	conn := dbtest.Open(t)
	h := &harness{
		db:         conn,
		repo:       NewRepository(conn),
		gateway:    &stubGateway{captureErrFor: map[string]error{}},
		deliveries: &stubDeliveries{},
		clock:      &testClock{now: t0},
	}
	synchronizer, err := bookings.NewSynchronizer(bookings.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:       h.repo,
		Tx:         dbpkg.Wrap(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Gateway:    h.gateway,
		Bookings:   synchronizer,
		Reviews:    reviews.NewRepository(conn),
		Deliveries: h.deliveries,
		Settings:   settings,
		Metrics:    metrics.NewEscrowMetrics(nil),
		OnStateChange: func(_ context.Context, bookingID uuid.UUID) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.changed = append(h.changed, bookingID)
		},
		Now: h.clock.Now,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func guestOf(booking *models.Booking) Actor {
	return Actor{ID: booking.GuestID, Role: "guest"}
}

// funded walks a new booking through hold and authorization at the current clock.
func (h *harness) funded(t *testing.T, total, fee int64) (*models.Booking, *models.EscrowPayment) {
	t.Helper()

	booking := dbtest.SeedBooking(t, h.db, total, dbtest.Int64(fee))
	hold, err := h.svc.CreateHold(context.Background(), CreateHoldInput{BookingID: booking.ID, Actor: guestOf(booking)})
	require.NoError(t, err)
	payment, err := h.svc.ConfirmAuthorization(context.Background(), hold.Payment.GatewayHoldRef)
	require.NoError(t, err)
	return booking, payment
}

func (h *harness) deliver(t *testing.T, bookingID uuid.UUID) {
	t.Helper()

	err := h.db.Transaction(func(tx *gorm.DB) error {
		_, err := h.svc.MarkDeliveredTx(context.Background(), tx, bookingID, h.clock.Now())
		return err
	})
	require.NoError(t, err)
}

// delivered returns an escrow that is held, delivered and due for auto confirmation at due.
func (h *harness) delivered(t *testing.T, total, fee int64) (*models.Booking, *models.EscrowPayment) {
	t.Helper()

	booking, payment := h.funded(t, total, fee)
	h.deliver(t, booking.ID)
	return booking, payment
}

func (h *harness) setAutoConfirmAt(t *testing.T, paymentID uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, h.db.Model(&models.EscrowPayment{}).Where("id = ?", paymentID).Update("auto_confirm_at", at.UTC()).Error)
}

func (h *harness) reload(t *testing.T, bookingID uuid.UUID) *models.EscrowPayment {
	t.Helper()
	payment, err := h.repo.FindByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	return payment
}

func (h *harness) reviewCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Review{}).Count(&n).Error)
	return n
}

var errDeclined = errors.New("card declined")
