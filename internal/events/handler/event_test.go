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

	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type mockEventService struct {
	createFunc       func(ctx context.Context, e *model.Event) error
	getByIDFunc      func(ctx context.Context, id string) (*model.Event, error)
	getAllFunc       func(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, int64, error)
	availabilityFunc func(ctx context.Context, id, month string, year int) (*model.Availability, error)
}

func (m *mockEventService) Create(ctx context.Context, e *model.Event) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	return nil
}

func (m *mockEventService) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockEventService) GetAll(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Event{}, 0, nil
}

func (m *mockEventService) Update(ctx context.Context, id string, updates *model.EventUpdate) (*model.Event, error) {
	return &model.Event{ID: id}, nil
}

func (m *mockEventService) Availability(ctx context.Context, id, month string, year int) (*model.Availability, error) {
	return m.availabilityFunc(ctx, id, month, year)
}

const testSecret = "events-handler-secret"

func newRouter(svc *mockEventService) (*httprouter.Router, *auth.Authenticator) {
	log := logger.Discard()
	authenticator := auth.NewAuthenticator(testSecret, log)
	router := httprouter.New()
	NewEventHandler(svc, authenticator, log).RegisterRoutes(router)
	return router, authenticator
}

func TestGetAll_InvalidQueryParameters(t *testing.T) {
	called := false
	router, _ := newRouter(&mockEventService{
		getAllFunc: func(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, int64, error) {
			called = true
			assert.True(t, filter.ActiveOnly)
			return []*model.Event{}, 0, nil
		},
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"alphabetic limit", "?limit=abc", http.StatusBadRequest},
		{"alphabetic offset", "?offset=xyz", http.StatusBadRequest},
		{"valid", "?limit=5&offset=10&category=trekking", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.True(t, called)
}

func TestGetByID_HidesInactiveEvents(t *testing.T) {
	router, _ := newRouter(&mockEventService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, Title: "Closed trek", IsActive: false}, nil
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/507f1f77bcf86cd799439011", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvailability_Handler(t *testing.T) {
	router, _ := newRouter(&mockEventService{
		availabilityFunc: func(ctx context.Context, id, month string, year int) (*model.Availability, error) {
			if month == "July" {
				return nil, apperrors.DateUnavailable("July 2025 is not available for this event")
			}
			return &model.Availability{EventID: id, Month: month, Year: year, Capacity: 12, Remaining: 12}, nil
		},
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{"missing year", "?month=June", http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown bucket", "?month=July&year=2025", http.StatusBadRequest, apperrors.CodeDateUnavailable},
		{"ok", "?month=June&year=2025", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/evt1/availability"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body["code"])
			}
		})
	}
}

func TestAdminCreate_RequiresStaff(t *testing.T) {
	created := false
	router, authenticator := newRouter(&mockEventService{
		createFunc: func(ctx context.Context, e *model.Event) error {
			created = true
			e.ID = "507f1f77bcf86cd799439011"
			return nil
		},
	})
	userToken, err := authenticator.Issue("user-1", auth.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := authenticator.Issue("admin-1", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	body := `{"title":"Hampta Pass Trek","category":"trekking","price":12500,"available_dates":[]}`
	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"plain user", userToken, http.StatusForbidden},
		{"admin", adminToken, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/events", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.True(t, created)
}
