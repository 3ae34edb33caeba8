package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"trekkr/internal/promocodes/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	httputil "trekkr/pkg/http"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
	"trekkr/pkg/money"
)

type PromoCodeHandler struct {
	service service.PromoCodeService
	auth    *auth.Authenticator
	log     *logger.Logger
}

func NewPromoCodeHandler(service service.PromoCodeService, authenticator *auth.Authenticator, log *logger.Logger) *PromoCodeHandler {
	return &PromoCodeHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

type validateRequest struct {
	Code    string  `json:"code"`
	EventID string  `json:"event_id"`
	Amount  float64 `json:"amount"`
}

type validateResponse struct {
	Valid          bool    `json:"valid"`
	Code           string  `json:"code"`
	Description    string  `json:"description,omitempty"`
	OriginalAmount float64 `json:"original_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

func (h *PromoCodeHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PromoCodeHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, _ := auth.FromContext(r.Context())

	var req validateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Validate", err)
		return
	}
	if req.Code == "" || req.EventID == "" || req.Amount <= 0 {
		h.writeError(w, "Validate", apperrors.InvalidInput("'code', 'event_id' and a positive 'amount' are required"))
		return
	}

	eval, err := h.service.Evaluate(r.Context(), req.Code, req.EventID, identity.UserID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.writeError(w, "Validate", err)
		return
	}

	resp := validateResponse{
		Valid:          true,
		Code:           eval.Promo.Code,
		Description:    eval.Promo.Description,
		OriginalAmount: money.Float(eval.CartAmount),
		DiscountAmount: money.Float(eval.DiscountAmount),
		FinalAmount:    money.Float(eval.FinalAmount),
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p model.PromoCode
	if err := httputil.DecodeJSON(r, &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, p); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PromoCodeHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	filter := model.PromoCodeFilter{ActiveOnly: r.URL.Query().Get("active") == "true"}
	promos, totalCount, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, promos, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *PromoCodeHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.PromoCodeUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	p, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

// Deactivate keeps the document so past usages still resolve.
func (h *PromoCodeHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Deactivate(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Deactivate", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *PromoCodeHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/promo-codes/validate", h.auth.RequireAuth(h.Validate))
	router.POST("/api/v1/admin/promo-codes", h.auth.RequireRole(h.Create, auth.Staff...))
	router.GET("/api/v1/admin/promo-codes", h.auth.RequireRole(h.GetAll, auth.Staff...))
	router.GET("/api/v1/admin/promo-codes/:id", h.auth.RequireRole(h.GetByID, auth.Staff...))
	router.PATCH("/api/v1/admin/promo-codes/:id", h.auth.RequireRole(h.Update, auth.Staff...))
	router.DELETE("/api/v1/admin/promo-codes/:id", h.auth.RequireRole(h.Deactivate, auth.Staff...))
}
