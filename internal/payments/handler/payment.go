package handler

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"trekkr/internal/payments/service"
	"trekkr/pkg/auth"
	apperrors "trekkr/pkg/errors"
	httputil "trekkr/pkg/http"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

const (
	HeaderSignature = "X-Razorpay-Signature"
	HeaderEventID   = "X-Razorpay-Event-Id"
)

type PaymentHandler struct {
	service service.PaymentService
	auth    *auth.Authenticator
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, authenticator *auth.Authenticator, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		auth:    authenticator,
		log:     log,
	}
}

type bookingPaymentStatus struct {
	BookingID     string              `json:"bookingId"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
}

type verifyResponse struct {
	Success bool                 `json:"success"`
	Booking bookingPaymentStatus `json:"booking"`
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	order, err := h.service.CreateOrder(r.Context(), identity, &req)
	if err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	if err := httputil.WriteCreated(w, order); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateOrder", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.VerifyPaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	booking, err := h.service.VerifyClientPayment(r.Context(), identity, &req)
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	resp := verifyResponse{
		Success: true,
		Booking: bookingPaymentStatus{
			BookingID:     booking.BookingID,
			Status:        booking.Status,
			PaymentStatus: booking.PaymentInfo.PaymentStatus,
		},
	}
	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "operation", "WriteJSON", "error", err)
	}
}

// Webhook is called by the gateway, not a user; the body signature is its only credential.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Webhook", apperrors.InvalidInput("Invalid request body"))
		return
	}

	err = h.service.HandleWebhook(r.Context(), body, r.Header.Get(HeaderSignature), r.Header.Get(HeaderEventID))
	if err != nil {
		h.writeError(w, "Webhook", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, httputil.SuccessResponse{Success: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/orders", h.auth.RequireAuth(h.CreateOrder))
	router.POST("/api/v1/payments/verify", h.auth.RequireAuth(h.Verify))
	router.POST("/api/v1/payments/webhook", h.Webhook)
}
