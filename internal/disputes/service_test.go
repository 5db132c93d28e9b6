package disputes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/internal/bookings"
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

type fixture struct {
	db      *gorm.DB
	gateway *gateway.Fake
	escrow  escrow.Service
	svc     Service
	changed []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := dbtest.Open(t)
	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tx := dbpkg.Wrap(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	synchronizer, err := bookings.NewSynchronizer(bookings.NewRepository(conn))
	require.NoError(t, err)

	f := &fixture{db: conn, gateway: gateway.NewFake()}
	escrowSvc, err := escrow.NewService(escrow.ServiceParams{
		Repo:     escrow.NewRepository(conn),
		Tx:       tx,
		Outbox:   events,
		Gateway:  f.gateway,
		Bookings: synchronizer,
		Reviews:  reviews.NewRepository(conn),
		Settings: escrow.Settings{FeeRate: decimal.RequireFromString("0.1")},
		Now:      clock,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     tx,
		Outbox: events,
		Escrow: escrowSvc,
		OnStateChange: func(_ context.Context, id uuid.UUID) {
			f.changed = append(f.changed, id)
		},
	})
	require.NoError(t, err)

	f.escrow = escrowSvc
	f.svc = svc
	return f
}

func (f *fixture) held(t *testing.T) *models.Booking {
	t.Helper()
	ctx := context.Background()
	booking := dbtest.SeedBooking(t, f.db, 10000, dbtest.Int64(1000))
	hold, err := f.escrow.CreateHold(ctx, escrow.CreateHoldInput{BookingID: booking.ID, Actor: escrow.Actor{ID: booking.GuestID}})
	require.NoError(t, err)
	_, err = f.escrow.ConfirmAuthorization(ctx, hold.Payment.GatewayHoldRef)
	require.NoError(t, err)
	return booking
}

func validInput(booking *models.Booking) CreateDisputeInput {
	return CreateDisputeInput{
		BookingID:           booking.ID,
		Actor:               escrow.Actor{ID: booking.GuestID, Role: "guest"},
		Reason:              enums.DisputeReasonNotDelivered,
		Description:         "The photographer never showed up at the venue.",
		EvidenceURLs:        []string{"https://example.com/chat.png"},
		RequestedResolution: enums.DisputeResolutionFullRefund,
	}
}

func TestCreateDisputeFreezesEscrow(t *testing.T) {
	f := newFixture(t)
	booking := f.held(t)

	dispute, err := f.svc.CreateDispute(context.Background(), validInput(booking))
	require.NoError(t, err)
	assert.Equal(t, enums.DisputeStatusPending, dispute.Status)
	assert.Equal(t, booking.GuestID, dispute.RaisedBy)

	payment, err := f.escrow.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EscrowStatusDisputed, payment.EscrowStatus)
	require.NotNil(t, payment.DisputeReason)
	assert.Contains(t, *payment.DisputeReason, "NOT_DELIVERED")
	require.NotNil(t, payment.DisputeCreatedAt)

	assert.Zero(t, f.gateway.TotalCaptureCalls())
	storedBooking, _ := dbtest.LoadBooking(t, f.db, booking.ID)
	assert.Equal(t, enums.BookingStatusInProgress, storedBooking.Status)
	assert.Equal(t, int64(1), dbtest.CountOutbox(t, f.db, enums.EventDisputeCreated))
	assert.Equal(t, []uuid.UUID{booking.ID}, f.changed)

	stored, err := f.svc.GetDispute(context.Background(), booking.ID, escrow.Actor{ID: booking.PhotographerID})
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, stored.ID)
	assert.Equal(t, []string{"https://example.com/chat.png"}, []string(stored.EvidenceURLs))
}

func TestCreateDisputeTwiceIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	booking := f.held(t)

	_, err := f.svc.CreateDispute(context.Background(), validInput(booking))
	require.NoError(t, err)

	_, err = f.svc.CreateDispute(context.Background(), validInput(booking))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeAlreadyProcessed))
	assert.Equal(t, int64(1), dbtest.CountOutbox(t, f.db, enums.EventDisputeCreated))
}

func TestCreateDisputeRejectsPhotographer(t *testing.T) {
	f := newFixture(t)
	booking := f.held(t)

	input := validInput(booking)
	input.Actor = escrow.Actor{ID: booking.PhotographerID}
	_, err := f.svc.CreateDispute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.GetDispute(context.Background(), booking.ID, escrow.Actor{ID: booking.GuestID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestCreateDisputeValidation(t *testing.T) {
	f := newFixture(t)
	booking := f.held(t)

	cases := map[string]func(in *CreateDisputeInput){
		"unknown reason":  func(in *CreateDisputeInput) { in.Reason = "BORED" },
		"short text":      func(in *CreateDisputeInput) { in.Description = "   bad    " },
		"bad evidence":    func(in *CreateDisputeInput) { in.EvidenceURLs = []string{"not a url"} },
		"no resolution":   func(in *CreateDisputeInput) { in.RequestedResolution = "" },
		"missing booking": func(in *CreateDisputeInput) { in.BookingID = uuid.Nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validInput(booking)
			mutate(&input)
			_, err := f.svc.CreateDispute(context.Background(), input)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}

	payment, err := f.escrow.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EscrowStatusEscrowed, payment.EscrowStatus)
}

func TestCreateDisputeRequiresHeldFunds(t *testing.T) {
	f := newFixture(t)
	booking := dbtest.SeedBooking(t, f.db, 10000, nil)
	_, err := f.escrow.CreateHold(context.Background(), escrow.CreateHoldInput{BookingID: booking.ID, Actor: escrow.Actor{ID: booking.GuestID}})
	require.NoError(t, err)

	_, err = f.svc.CreateDispute(context.Background(), validInput(booking))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotEligible))
}
