package settlement

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/bookings"
	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/disputes"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/internal/gateway"
	"github.com/angelmondragon/shootpay-backend/internal/reviews"
	dbpkg "github.com/angelmondragon/shootpay-backend/pkg/db"
	"github.com/angelmondragon/shootpay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/outbox"
)

var t0 = time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *memStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.values[key], 10, 64)
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memStore) EscrowStatusKey(bookingID string, version int64) string {
	return "sp:escrow:status:" + bookingID + ":" + strconv.FormatInt(version, 10)
}

func (m *memStore) EscrowStatusVersionKey(bookingID string) string {
	return "sp:escrow:status-version:" + bookingID
}

// has reports whether a snapshot exists under the booking's current version.
func (m *memStore) has(bookingID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	version, _ := strconv.ParseInt(m.values[m.EscrowStatusVersionKey(bookingID.String())], 10, 64)
	_, ok := m.values[m.EscrowStatusKey(bookingID.String(), version)]
	return ok
}

type fixture struct {
	db      *gorm.DB
	gateway *gateway.Fake
	store   *memStore
	svc     *Service
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := dbtest.Open(t)
	f := &fixture{db: conn, gateway: gateway.NewFake(), store: newMemStore(), now: t0}
	clock := func() time.Time { return f.now }
	cache := NewStatusCache(f.store, time.Minute, nil)
	tx := dbpkg.Wrap(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	synchronizer, err := bookings.NewSynchronizer(bookings.NewRepository(conn))
	require.NoError(t, err)
	deliveryRepo := delivery.NewRepository(conn)

	escrowSvc, err := escrow.NewService(escrow.ServiceParams{
		Repo:          escrow.NewRepository(conn),
		Tx:            tx,
		Outbox:        events,
		Gateway:       f.gateway,
		Bookings:      synchronizer,
		Reviews:       reviews.NewRepository(conn),
		Deliveries:    delivery.NewConfirmer(deliveryRepo),
		Settings:      escrow.Settings{FeeRate: decimal.RequireFromString("0.1")},
		OnStateChange: cache.Invalidate,
		Now:           clock,
	})
	require.NoError(t, err)

	deliverySvc, err := delivery.NewService(delivery.ServiceParams{
		Repo:          deliveryRepo,
		Tx:            tx,
		Outbox:        events,
		Escrow:        escrowSvc,
		Bookings:      synchronizer,
		OnStateChange: cache.Invalidate,
		Now:           clock,
	})
	require.NoError(t, err)

	disputeSvc, err := disputes.NewService(disputes.ServiceParams{
		Repo:          disputes.NewRepository(conn),
		Tx:            tx,
		Outbox:        events,
		Escrow:        escrowSvc,
		OnStateChange: cache.Invalidate,
	})
	require.NoError(t, err)

	f.svc, err = NewService(ServiceParams{
		Escrow:   escrowSvc,
		Delivery: deliverySvc,
		Disputes: disputeSvc,
		Cache:    cache,
		Now:      clock,
	})
	require.NoError(t, err)
	return f
}

func guest(b *models.Booking) escrow.Actor {
	return escrow.Actor{ID: b.GuestID, Role: string(enums.ActorRoleGuest)}
}

func photographer(b *models.Booking) escrow.Actor {
	return escrow.Actor{ID: b.PhotographerID, Role: string(enums.ActorRolePhotographer)}
}

// delivered walks booking B1 (10000 total, 1000 fee) to ESCROWED+DELIVERED at t0.
func (f *fixture) delivered(t *testing.T) (*models.Booking, string) {
	t.Helper()
	ctx := context.Background()
	booking := dbtest.SeedBooking(t, f.db, 10000, dbtest.Int64(1000))

	hold := f.svc.CreateEscrowPayment(ctx, escrow.CreateHoldInput{BookingID: booking.ID, Actor: guest(booking)})
	require.True(t, hold.Success, "%+v", hold.Error)
	assert.Equal(t, enums.EscrowStatusPending, hold.Data.Escrow.EscrowStatus)
	assert.NotEmpty(t, hold.Data.ClientSecret)

	ref := hold.Data.Escrow.GatewayHoldRef
	confirmed := f.svc.ConfirmEscrowPayment(ctx, ref)
	require.True(t, confirmed.Success, "%+v", confirmed.Error)
	assert.Equal(t, enums.EscrowStatusEscrowed, confirmed.Data.EscrowStatus)
	require.NotNil(t, confirmed.Data.EscrowedAt)
	assert.True(t, confirmed.Data.EscrowedAt.Equal(t0))
	require.NotNil(t, confirmed.Data.AutoConfirmAt)
	assert.True(t, confirmed.Data.AutoConfirmAt.Equal(t0.Add(72*time.Hour)))

	url := "https://www.dropbox.com/sh/b1-gallery"
	service := "dropbox"
	deliveredResult := f.svc.DeliverPhotos(ctx, delivery.RecordDeliveryInput{
		BookingID:       booking.ID,
		Actor:           photographer(booking),
		Method:          enums.DeliveryMethodExternalURL,
		PhotoCount:      80,
		ExternalURL:     &url,
		ExternalService: &service,
	})
	require.True(t, deliveredResult.Success, "%+v", deliveredResult.Error)
	return booking, ref
}

func (f *fixture) reviewCount(t *testing.T, bookingID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Review{}).Where("booking_id = ?", bookingID).Count(&count).Error)
	return count
}

func TestGuestConfirmationSettlesBooking(t *testing.T) {
	f := newFixture(t)
	booking, ref := f.delivered(t)

	f.now = t0.Add(24 * time.Hour)
	result := f.svc.ConfirmDeliveryWithReview(context.Background(), escrow.ConfirmReceiptInput{
		BookingID: booking.ID,
		Actor:     guest(booking),
		Satisfied: true,
		Review:    &reviews.Input{Rating: 5},
	})
	require.True(t, result.Success, "%+v", result.Error)
	assert.Equal(t, escrow.OutcomeCompleted, result.Data.Outcome)
	require.NotNil(t, result.Data.ReviewID)
	require.NotNil(t, result.Data.Escrow)
	assert.Equal(t, enums.EscrowStatusCompleted, result.Data.Escrow.EscrowStatus)
	assert.Equal(t, int64(9000), result.Data.Escrow.PhotographerEarnings)

	assert.Equal(t, 1, f.gateway.CaptureCalls(ref))
	assert.Equal(t, int64(10000), f.gateway.CapturedAmount(ref))

	var review models.Review
	require.NoError(t, f.db.Where("booking_id = ?", booking.ID).First(&review).Error)
	assert.Equal(t, 5, review.Rating)

	stored, request := dbtest.LoadBooking(t, f.db, booking.ID)
	assert.Equal(t, enums.BookingStatusCompleted, stored.Status)
	assert.Equal(t, enums.RequestStatusCompleted, request.Status)

	again := f.svc.ConfirmDeliveryWithReview(context.Background(), escrow.ConfirmReceiptInput{
		BookingID: booking.ID,
		Actor:     guest(booking),
		Satisfied: true,
		Review:    &reviews.Input{Rating: 5},
	})
	require.False(t, again.Success)
	assert.Equal(t, pkgerrors.KindAlreadyProcessed, again.Error.Kind)
	assert.Equal(t, 1, f.gateway.CaptureCalls(ref))
}

func TestSilentGuestIsSettledBySweep(t *testing.T) {
	f := newFixture(t)
	booking, ref := f.delivered(t)

	f.now = t0.Add(71 * time.Hour)
	early := f.svc.ProcessAutoConfirmations(context.Background())
	require.True(t, early.Success)
	assert.Equal(t, 0, early.Data.ProcessedCount)

	f.now = t0.Add(73 * time.Hour)
	result := f.svc.ProcessAutoConfirmations(context.Background())
	require.True(t, result.Success, "%+v", result.Error)
	assert.Equal(t, 1, result.Data.ProcessedCount)
	assert.Empty(t, result.Data.Failures)

	status := f.svc.GetEscrowPaymentStatus(context.Background(), booking.ID, guest(booking))
	require.True(t, status.Success)
	assert.Equal(t, enums.EscrowStatusCompleted, status.Data.EscrowStatus)
	assert.Equal(t, 1, f.gateway.CaptureCalls(ref))
	assert.Zero(t, f.reviewCount(t, booking.ID))

	rerun := f.svc.ProcessAutoConfirmations(context.Background())
	require.True(t, rerun.Success)
	assert.Equal(t, 0, rerun.Data.ProcessedCount)
	assert.Equal(t, 1, f.gateway.CaptureCalls(ref))
}

func TestDisputeFreezesEscrowWithoutCapture(t *testing.T) {
	f := newFixture(t)
	booking, ref := f.delivered(t)

	result := f.svc.CreateDispute(context.Background(), disputes.CreateDisputeInput{
		BookingID:           booking.ID,
		Actor:               guest(booking),
		Reason:              enums.DisputeReasonQuality,
		Description:         "Most of the photos are blurry and underexposed.",
		RequestedResolution: enums.DisputeResolutionPartialRefund,
	})
	require.True(t, result.Success, "%+v", result.Error)
	assert.Equal(t, enums.DisputeStatusPending, result.Data.Status)
	assert.Empty(t, result.Data.EvidenceURLs)

	status := f.svc.GetEscrowPaymentStatus(context.Background(), booking.ID, photographer(booking))
	require.True(t, status.Success)
	assert.Equal(t, enums.EscrowStatusDisputed, status.Data.EscrowStatus)
	require.NotNil(t, status.Data.DisputeReason)
	assert.NotEmpty(t, *status.Data.DisputeReason)

	f.now = t0.Add(100 * time.Hour)
	sweep := f.svc.ProcessAutoConfirmations(context.Background())
	require.True(t, sweep.Success)
	assert.Equal(t, 0, sweep.Data.ProcessedCount)

	assert.Equal(t, 0, f.gateway.CaptureCalls(ref))
	stored, _ := dbtest.LoadBooking(t, f.db, booking.ID)
	assert.Equal(t, enums.BookingStatusInProgress, stored.Status)

	read := f.svc.GetDispute(context.Background(), booking.ID, guest(booking))
	require.True(t, read.Success)
	assert.Equal(t, result.Data.DisputeID, read.Data.DisputeID)
}

func TestEscrowStatusIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	booking, _ := f.delivered(t)
	ctx := context.Background()

	first := f.svc.GetEscrowPaymentStatus(ctx, booking.ID, guest(booking))
	require.True(t, first.Success)
	assert.Equal(t, enums.DeliveryStatusDelivered, first.Data.DeliveryStatus)
	assert.True(t, f.store.has(booking.ID))

	stranger := f.svc.GetEscrowPaymentStatus(ctx, booking.ID, escrow.Actor{ID: uuid.New(), Role: string(enums.ActorRoleGuest)})
	require.False(t, stranger.Success)
	assert.Equal(t, pkgerrors.KindAuthorization, stranger.Error.Kind)

	admin := f.svc.GetEscrowPaymentStatus(ctx, booking.ID, escrow.Actor{ID: uuid.New(), Role: string(enums.ActorRoleAdmin)})
	require.True(t, admin.Success)

	confirm := f.svc.ConfirmDeliveryWithReview(ctx, escrow.ConfirmReceiptInput{BookingID: booking.ID, Actor: guest(booking), Satisfied: true})
	require.True(t, confirm.Success)
	assert.False(t, f.store.has(booking.ID))

	after := f.svc.GetEscrowPaymentStatus(ctx, booking.ID, guest(booking))
	require.True(t, after.Success)
	assert.Equal(t, enums.EscrowStatusCompleted, after.Data.EscrowStatus)
}

func TestStatusCacheDropsSnapshotBuiltBeforeInvalidate(t *testing.T) {
	store := newMemStore()
	cache := NewStatusCache(store, time.Minute, nil)
	ctx := context.Background()
	bookingID := uuid.New()

	_, version, hit := cache.load(ctx, bookingID)
	require.False(t, hit)

	cache.Invalidate(ctx, bookingID)
	cache.save(ctx, EscrowView{BookingID: bookingID, EscrowStatus: enums.EscrowStatusEscrowed}, version)

	_, _, hit = cache.load(ctx, bookingID)
	assert.False(t, hit)
	assert.False(t, store.has(bookingID))

	_, current, _ := cache.load(ctx, bookingID)
	cache.save(ctx, EscrowView{BookingID: bookingID, EscrowStatus: enums.EscrowStatusCompleted}, current)
	view, _, hit := cache.load(ctx, bookingID)
	require.True(t, hit)
	assert.Equal(t, enums.EscrowStatusCompleted, view.EscrowStatus)
}

func TestRefundRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := dbtest.SeedBooking(t, f.db, 5000, nil)
	hold := f.svc.CreateEscrowPayment(ctx, escrow.CreateHoldInput{BookingID: booking.ID, Actor: guest(booking)})
	require.True(t, hold.Success)

	denied := f.svc.RefundEscrowPayment(ctx, escrow.RefundInput{BookingID: booking.ID, Reason: "cancelled", Actor: guest(booking)})
	require.False(t, denied.Success)
	assert.Equal(t, pkgerrors.KindAuthorization, denied.Error.Kind)

	refunded := f.svc.RefundEscrowPayment(ctx, escrow.RefundInput{
		BookingID: booking.ID,
		Reason:    "photographer unavailable",
		Actor:     escrow.Actor{ID: uuid.New(), Role: string(enums.ActorRoleAdmin)},
	})
	require.True(t, refunded.Success, "%+v", refunded.Error)
	assert.Equal(t, enums.EscrowStatusRefunded, refunded.Data.EscrowStatus)

	again := f.svc.CreateEscrowPayment(ctx, escrow.CreateHoldInput{BookingID: booking.ID, Actor: guest(booking)})
	require.False(t, again.Success)
	assert.Equal(t, pkgerrors.KindNotEligible, again.Error.Kind)
}

func TestFailuresComeBackAsResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := f.svc.GetEscrowPaymentStatus(ctx, uuid.New(), escrow.Actor{ID: uuid.New()})
	require.False(t, missing.Success)
	assert.Equal(t, pkgerrors.KindNotFound, missing.Error.Kind)

	anonymous := f.svc.GetEscrowPaymentStatus(ctx, uuid.New(), escrow.Actor{})
	assert.Equal(t, pkgerrors.KindAuthentication, anonymous.Error.Kind)

	booking := dbtest.SeedBooking(t, f.db, 10000, dbtest.Int64(1000))
	hold := f.svc.CreateEscrowPayment(ctx, escrow.CreateHoldInput{BookingID: booking.ID, Actor: guest(booking)})
	require.True(t, hold.Success)

	early := f.svc.ConfirmDeliveryWithReview(ctx, escrow.ConfirmReceiptInput{BookingID: booking.ID, Actor: guest(booking), Satisfied: true})
	require.False(t, early.Success)
	assert.Equal(t, pkgerrors.KindNotDeliverable, early.Error.Kind)

	services := f.svc.ListDeliveryServices()
	require.True(t, services.Success)
	assert.Len(t, services.Data.Services, 7)
}

func TestCaptureFailureLeavesEscrowRetryable(t *testing.T) {
	f := newFixture(t)
	booking, ref := f.delivered(t)
	ctx := context.Background()

	f.gateway.CaptureErr = fmt.Errorf("card network timeout")
	failed := f.svc.ConfirmDeliveryWithReview(ctx, escrow.ConfirmReceiptInput{BookingID: booking.ID, Actor: guest(booking), Satisfied: true})
	require.False(t, failed.Success)
	assert.Equal(t, pkgerrors.KindGateway, failed.Error.Kind)

	status := f.svc.GetEscrowPaymentStatus(ctx, booking.ID, guest(booking))
	require.True(t, status.Success)
	assert.Equal(t, enums.EscrowStatusEscrowed, status.Data.EscrowStatus)

	f.gateway.CaptureErr = nil
	retried := f.svc.ConfirmDeliveryWithReview(ctx, escrow.ConfirmReceiptInput{BookingID: booking.ID, Actor: guest(booking), Satisfied: true})
	require.True(t, retried.Success, "%+v", retried.Error)
	assert.True(t, f.gateway.Captured(ref))
}
