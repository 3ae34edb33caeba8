package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trekkr/internal/payments/gateway"
	"trekkr/internal/payments/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type mockPaymentService struct {
	service.PaymentService
	createOrderFunc func(ctx context.Context, identity auth.Identity, req *model.CreateOrderRequest) (*gateway.Order, error)
	verifyFunc      func(ctx context.Context, identity auth.Identity, req *model.VerifyPaymentRequest) (*model.Booking, error)
	webhookFunc     func(ctx context.Context, body []byte, signature, eventID string) error
}

func (m *mockPaymentService) CreateOrder(ctx context.Context, identity auth.Identity, req *model.CreateOrderRequest) (*gateway.Order, error) {
	return m.createOrderFunc(ctx, identity, req)
}

func (m *mockPaymentService) VerifyClientPayment(ctx context.Context, identity auth.Identity, req *model.VerifyPaymentRequest) (*model.Booking, error) {
	return m.verifyFunc(ctx, identity, req)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	return m.webhookFunc(ctx, body, signature, eventID)
}

const testSecret = "payment-handler-secret"

func setup(t *testing.T, svc *mockPaymentService) (*httprouter.Router, string) {
	t.Helper()
	log := logger.Discard()
	authenticator := auth.NewAuthenticator(testSecret, log)
	router := httprouter.New()
	NewPaymentHandler(svc, authenticator, log).RegisterRoutes(router)
	token, err := authenticator.Issue("user-1", auth.RoleUser, time.Hour)
	require.NoError(t, err)
	return router, token
}

func TestCreateOrder_Handler(t *testing.T) {
	router, token := setup(t, &mockPaymentService{
		createOrderFunc: func(ctx context.Context, identity auth.Identity, req *model.CreateOrderRequest) (*gateway.Order, error) {
			assert.Equal(t, "user-1", identity.UserID)
			assert.Equal(t, "TRV1", req.BookingID)
			return &gateway.Order{ID: "order_1", Amount: 2000050, Currency: "INR", Receipt: "TRV1"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/orders", strings.NewReader(`{"bookingId":"TRV1","amount":20000.5}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data gateway.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order_1", body.Data.ID)
	assert.Equal(t, int64(2000050), body.Data.Amount)
}

func TestVerify_Handler(t *testing.T) {
	router, token := setup(t, &mockPaymentService{
		verifyFunc: func(ctx context.Context, identity auth.Identity, req *model.VerifyPaymentRequest) (*model.Booking, error) {
			if req.Signature != "abc123" {
				return nil, apperrors.SignatureMismatch()
			}
			return &model.Booking{
				BookingID:   req.BookingID,
				Status:      model.BookingConfirmed,
				PaymentInfo: model.PaymentInfo{PaymentStatus: model.PaymentSuccess},
			}, nil
		},
	})

	send := func(sig string) *httptest.ResponseRecorder {
		body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"` + sig + `","bookingId":"TRV1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := send("abc123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"booking":{"bookingId":"TRV1","status":"CONFIRMED","paymentStatus":"SUCCESS"}}`, rec.Body.String())

	rec = send("ffff")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeSignatureMismatch)
	assert.NotContains(t, rec.Body.String(), "abc123")
}

func TestWebhook_Handler(t *testing.T) {
	var gotBody []byte
	var gotSig, gotEvent string
	router, _ := setup(t, &mockPaymentService{
		webhookFunc: func(ctx context.Context, body []byte, signature, eventID string) error {
			gotBody, gotSig, gotEvent = body, signature, eventID
			if signature == "bad" {
				return apperrors.SignatureMismatch()
			}
			return nil
		},
	})

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(`{"event":"payment.captured"}`))
		req.Header.Set(HeaderSignature, sig)
		req.Header.Set(HeaderEventID, "evt_1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := send("good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, `{"event":"payment.captured"}`, string(gotBody))
	assert.Equal(t, "good", gotSig)
	assert.Equal(t, "evt_1", gotEvent)

	rec = send("bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
