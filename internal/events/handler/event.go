package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"trekkr/internal/events/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	httputil "trekkr/pkg/http"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type EventHandler struct {
	service service.EventService
	auth    *auth.Authenticator
	log     *logger.Logger
}

func NewEventHandler(service service.EventService, authenticator *auth.Authenticator, log *logger.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

func (h *EventHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *EventHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	filter := model.EventFilter{
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		ActiveOnly: true,
	}
	events, totalCount, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, events, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *EventHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	e, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	if !e.IsActive {
		h.writeError(w, "GetByID", apperrors.NotFoundWithID("Event", id))
		return
	}

	if err := httputil.WriteSuccess(w, e); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EventHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	month := query.Get("month")
	year, err := strconv.Atoi(query.Get("year"))
	if month == "" || err != nil {
		h.writeError(w, "Availability", apperrors.InvalidInput("'month' and numeric 'year' query parameters are required"))
		return
	}

	availability, err := h.service.Availability(r.Context(), ps.ByName("id"), month, year)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var e model.Event
	if err := httputil.DecodeJSON(r, &e); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &e); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, e); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.EventUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	e, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, e); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EventHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/events", h.GetAll)
	router.GET("/api/v1/events/:id", h.GetByID)
	router.GET("/api/v1/events/:id/availability", h.Availability)
	router.POST("/api/v1/admin/events", h.auth.RequireRole(h.Create, auth.Staff...))
	router.PATCH("/api/v1/admin/events/:id", h.auth.RequireRole(h.Update, auth.Staff...))
}
