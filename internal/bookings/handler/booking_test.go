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

	"trekkr/internal/bookings/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type mockBookingService struct {
	service.BookingService
	createFunc func(ctx context.Context, identity auth.Identity, req *model.CreateBookingRequest) (*model.Booking, error)
	listFunc   func(ctx context.Context, identity auth.Identity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc func(ctx context.Context, identity auth.Identity, bookingID, reason string) (*model.Booking, error)
	refundFunc func(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, identity auth.Identity, req *model.CreateBookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, identity, req)
}

func (m *mockBookingService) List(ctx context.Context, identity auth.Identity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listFunc(ctx, identity, filter, limit, offset)
}

func (m *mockBookingService) Cancel(ctx context.Context, identity auth.Identity, bookingID, reason string) (*model.Booking, error) {
	return m.cancelFunc(ctx, identity, bookingID, reason)
}

func (m *mockBookingService) Refund(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
	return m.refundFunc(ctx, identity, bookingID)
}

const testSecret = "booking-handler-secret"

type testServer struct {
	router *httprouter.Router
	auth   *auth.Authenticator
}

func newTestServer(svc *mockBookingService) *testServer {
	log := logger.Discard()
	authenticator := auth.NewAuthenticator(testSecret, log)
	router := httprouter.New()
	NewBookingHandler(svc, authenticator, log).RegisterRoutes(router)
	return &testServer{router: router, auth: authenticator}
}

func (s *testServer) do(t *testing.T, method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := s.auth.Issue("user-1", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestCreate_Handler(t *testing.T) {
	srv := newTestServer(&mockBookingService{
		createFunc: func(ctx context.Context, identity auth.Identity, req *model.CreateBookingRequest) (*model.Booking, error) {
			assert.Equal(t, "user-1", identity.UserID)
			if len(req.Participants) > 3 {
				return nil, apperrors.CapacityExceeded("Only 3 seats available for June 2025. You requested 4 seats.", 3, 4)
			}
			return &model.Booking{BookingID: "TRVABC123", Status: model.BookingPending, FinalAmount: 12500}, nil
		},
	})

	one := `{"eventId":"507f1f77bcf86cd799439011","selectedDate":"2025-06-05","selectedMonth":"June","selectedYear":2025,"participants":[{}]}`
	four := strings.Replace(one, `[{}]`, `[{},{},{},{}]`, 1)

	tests := []struct {
		name       string
		role       auth.Role
		body       string
		wantStatus int
		wantCode   string
	}{
		{"anonymous", "", one, http.StatusUnauthorized, ""},
		{"unknown field", auth.RoleUser, `{"eventId":"x","price":1}`, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"sold out", auth.RoleUser, four, http.StatusBadRequest, apperrors.CodeCapacityExceeded},
		{"created", auth.RoleUser, one, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/v1/bookings", tt.body, tt.role)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body["code"])
			}
		})
	}
}

func TestList_Handler(t *testing.T) {
	var got model.BookingFilter
	srv := newTestServer(&mockBookingService{
		listFunc: func(ctx context.Context, identity auth.Identity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
			got = filter
			return []*model.Booking{{BookingID: "TRV1"}}, 1, nil
		},
	})

	rec := srv.do(t, http.MethodGet, "/api/v1/bookings?status=confirmed&event_id=evt1&limit=5", "", auth.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, "evt1", got.EventID)

	rec = srv.do(t, http.MethodGet, "/api/v1/bookings?status=lost", "", auth.RoleUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancel_Handler(t *testing.T) {
	srv := newTestServer(&mockBookingService{
		cancelFunc: func(ctx context.Context, identity auth.Identity, bookingID, reason string) (*model.Booking, error) {
			if bookingID == "TRVDONE" {
				return nil, apperrors.Conflict("cannot cancel a booking that is COMPLETED")
			}
			assert.Equal(t, "weather", reason)
			return &model.Booking{BookingID: bookingID, Status: model.BookingCancelled}, nil
		},
	})

	rec := srv.do(t, http.MethodPost, "/api/v1/bookings/TRV1/cancel", `{"reason":"weather"}`, auth.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)

	rec = srv.do(t, http.MethodPost, "/api/v1/bookings/TRVDONE/cancel", `{"reason":"weather"}`, auth.RoleUser)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefund_RequiresStaff(t *testing.T) {
	called := false
	srv := newTestServer(&mockBookingService{
		refundFunc: func(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
			called = true
			return &model.Booking{BookingID: bookingID, Status: model.BookingRefunded}, nil
		},
	})

	rec := srv.do(t, http.MethodPost, "/api/v1/bookings/TRV1/refund", "", auth.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	rec = srv.do(t, http.MethodPost, "/api/v1/bookings/TRV1/refund", "", auth.RoleSubAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
