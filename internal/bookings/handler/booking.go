package handler

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"trekkr/internal/bookings/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	httputil "trekkr/pkg/http"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	auth    *auth.Authenticator
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, authenticator *auth.Authenticator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) identity(r *http.Request) auth.Identity {
	identity, _ := auth.FromContext(r.Context())
	return identity
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), h.identity(r), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		UserID:  strings.TrimSpace(query.Get("user_id")),
		EventID: strings.TrimSpace(query.Get("event_id")),
		Status:  model.BookingStatus(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
	}
	switch filter.Status {
	case "", model.BookingPending, model.BookingConfirmed, model.BookingCancelled, model.BookingCompleted, model.BookingRefunded:
	default:
		h.writeError(w, "List", apperrors.InvalidInput("Unknown booking status: "+string(filter.Status)))
		return
	}

	bookings, totalCount, err := h.service.List(r.Context(), h.identity(r), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Get(r.Context(), h.identity(r), ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req cancelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), h.identity(r), ps.ByName("bookingId"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Complete(r.Context(), h.identity(r), ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Refund(r.Context(), h.identity(r), ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.auth.RequireAuth(h.Create))
	router.GET("/api/v1/bookings", h.auth.RequireAuth(h.List))
	router.GET("/api/v1/bookings/:bookingId", h.auth.RequireAuth(h.Get))
	router.POST("/api/v1/bookings/:bookingId/cancel", h.auth.RequireAuth(h.Cancel))
	router.POST("/api/v1/bookings/:bookingId/complete", h.auth.RequireRole(h.Complete, auth.Staff...))
	router.POST("/api/v1/bookings/:bookingId/refund", h.auth.RequireRole(h.Refund, auth.Staff...))
}
