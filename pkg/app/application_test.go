package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"trekkr/pkg/client"
	"trekkr/pkg/config"
	"trekkr/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/ping", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func testApp() *Application {
	a := NewApplication(&config.Config{
		Port:              "8080",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	})
	a.SetApp(pingHandler{})
	return a
}

func TestApplication_HealthBypassesAppStack(t *testing.T) {
	a := testApp()
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"error"`)
}

func TestApplication_AppRoutesAreRateLimited(t *testing.T) {
	a := testApp()
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestApplication_RejectsOversizedBody(t *testing.T) {
	a := testApp()
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader(`{"x":"`+strings.Repeat("a", 4096)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
