package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shootpay-backend/api/middleware"
	"github.com/angelmondragon/shootpay-backend/internal/delivery"
	"github.com/angelmondragon/shootpay-backend/internal/disputes"
	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	internalsettlement "github.com/angelmondragon/shootpay-backend/internal/settlement"
	"github.com/angelmondragon/shootpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

type stubService struct {
	Service
	holdInput    escrow.CreateHoldInput
	receiptInput escrow.ConfirmReceiptInput
	disputeInput disputes.CreateDisputeInput
	statusActor  escrow.Actor
	receipt      types.Result[internalsettlement.ReceiptView]
}

func (s *stubService) CreateEscrowPayment(_ context.Context, input escrow.CreateHoldInput) types.Result[internalsettlement.HoldView] {
	s.holdInput = input
	return types.Ok(internalsettlement.HoldView{ClientSecret: "pi_secret"})
}

func (s *stubService) GetEscrowPaymentStatus(_ context.Context, bookingID uuid.UUID, actor escrow.Actor) types.Result[internalsettlement.EscrowView] {
	s.statusActor = actor
	if actor.ID == uuid.Nil {
		return types.Fail[internalsettlement.EscrowView](pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
	}
	return types.Ok(internalsettlement.EscrowView{BookingID: bookingID, EscrowStatus: enums.EscrowStatusEscrowed})
}

func (s *stubService) ConfirmDeliveryWithReview(_ context.Context, input escrow.ConfirmReceiptInput) types.Result[internalsettlement.ReceiptView] {
	s.receiptInput = input
	return s.receipt
}

func (s *stubService) CreateDispute(_ context.Context, input disputes.CreateDisputeInput) types.Result[internalsettlement.DisputeView] {
	s.disputeInput = input
	return types.Ok(internalsettlement.DisputeView{BookingID: input.BookingID})
}

func (s *stubService) ListDeliveryServices() types.Result[internalsettlement.DeliveryServices] {
	return types.Ok(internalsettlement.DeliveryServices{Services: delivery.Services()})
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/escrow", CreateEscrow(svc, nil))
	r.Get("/escrow/{bookingId}", EscrowStatus(svc, nil))
	r.Post("/escrow/{bookingId}/confirm", ConfirmReceipt(svc, nil))
	r.Post("/disputes", CreateDispute(svc, nil))
	r.Get("/delivery-services", DeliveryServices(svc, nil))
	return r
}

func authed(req *http.Request, userID uuid.UUID, role string) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), middleware.Actor{UserID: userID, Role: enums.ActorRole(role)}))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) types.Result[T] {
	t.Helper()
	var out types.Result[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateEscrowPassesActor(t *testing.T) {
	svc := &stubService{}
	guestID := uuid.New()
	bookingID := uuid.New()
	body, _ := json.Marshal(map[string]any{"booking_id": bookingID, "guest_contact": "guest@example.com"})

	req := authed(httptest.NewRequest(http.MethodPost, "/escrow", bytes.NewReader(body)), guestID, "guest")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, bookingID, svc.holdInput.BookingID)
	assert.Equal(t, guestID, svc.holdInput.Actor.ID)
	assert.Equal(t, "pi_secret", decode[internalsettlement.HoldView](t, rec).Data.ClientSecret)
}

func TestCreateEscrowRejectsUnknownFields(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodPost, "/escrow", bytes.NewReader([]byte(`{"booking_id":"`+uuid.NewString()+`","amount":5}`))), uuid.New(), "guest")
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pkgerrors.KindValidation, decode[any](t, rec).Error.Kind)
}

func TestEscrowStatusRejectsBadBookingID(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/escrow/not-a-uuid", nil), uuid.New(), "guest")
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscrowStatusWithoutActorIsAuthenticationFailure(t *testing.T) {
	svc := &stubService{}
	req := httptest.NewRequest(http.MethodGet, "/escrow/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	result := decode[any](t, rec)
	assert.False(t, result.Success)
	assert.Equal(t, pkgerrors.KindAuthentication, result.Error.Kind)
	assert.Equal(t, uuid.Nil, svc.statusActor.ID)
}

func TestConfirmReceiptMapsFailureStatus(t *testing.T) {
	svc := &stubService{receipt: types.Fail[internalsettlement.ReceiptView](pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "escrow already settled"))}
	bookingID := uuid.New()
	body := []byte(`{"satisfied":true,"review":{"rating":5},"issues":["  "]}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/escrow/"+bookingID.String()+"/confirm", bytes.NewReader(body)), uuid.New(), "guest")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, pkgerrors.KindAlreadyProcessed, decode[any](t, rec).Error.Kind)
	assert.Equal(t, bookingID, svc.receiptInput.BookingID)
	assert.True(t, svc.receiptInput.Satisfied)
	require.NotNil(t, svc.receiptInput.Review)
	assert.Equal(t, 5, svc.receiptInput.Review.Rating)
	assert.Empty(t, svc.receiptInput.Issues)
}

func TestConfirmReceiptRequiresSatisfiedFlag(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodPost, "/escrow/"+uuid.NewString()+"/confirm", bytes.NewReader([]byte(`{}`))), uuid.New(), "guest")
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDisputeValidatesBody(t *testing.T) {
	svc := &stubService{}
	bookingID := uuid.New()
	good, _ := json.Marshal(map[string]any{
		"booking_id":           bookingID,
		"reason":               "NOT_DELIVERED",
		"description":          "no photos arrived after the shoot",
		"requested_resolution": "FULL_REFUND",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/disputes", bytes.NewReader(good)), uuid.New(), "guest")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, enums.DisputeReason("NOT_DELIVERED"), svc.disputeInput.Reason)

	bad, _ := json.Marshal(map[string]any{
		"booking_id":           bookingID,
		"reason":               "BORED",
		"description":          "short",
		"requested_resolution": "FULL_REFUND",
	})
	req = authed(httptest.NewRequest(http.MethodPost, "/disputes", bytes.NewReader(bad)), uuid.New(), "guest")
	rec = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeliveryServicesListsHosts(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delivery-services", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[internalsettlement.DeliveryServices](t, rec).Data.Services)
}
