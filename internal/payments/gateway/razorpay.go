// Package gateway talks to the payment provider's orders API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	paymentserrors "trekkr/internal/payments/errors"
	"trekkr/pkg/client"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/money"
)

const ordersPath = "/v1/orders"

type OrderRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Receipt   string
	BookingID string
}

// Order is the gateway's view of a checkout order. Amount is in minor units.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status,omitempty"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

type RazorpayGateway struct {
	cfg    *config.Config
	client *client.HttpClient
}

func NewRazorpayGateway(cfg *config.Config) *RazorpayGateway {
	return &RazorpayGateway{
		cfg: cfg,
		client: client.NewHttpClient(cfg.RazorpayBaseURL, cfg.GatewayTimeout, int64(cfg.GatewayBreakerTrips)).
			WithBasicAuth(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
	}
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := createOrderBody{
		Amount:   money.ToMinor(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    map[string]string{"booking_id": req.BookingID},
	}

	resp, err := g.client.POST(ctx, ordersPath, body)
	if err != nil {
		if errors.Is(err, client.ErrCircuitOpen) {
			g.cfg.Log.Warn("Payment gateway circuit open", "booking_id", req.BookingID)
			return nil, apperrors.Unavailable("Payment gateway")
		}
		g.cfg.Log.Error("Payment gateway request failed", "booking_id", req.BookingID, "error", err)
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "Payment gateway is temporarily unavailable", http.StatusServiceUnavailable)
	}

	if !resp.OK() {
		msg := client.ErrorMessage(resp)
		g.cfg.Log.Warn("Payment gateway rejected order",
			"booking_id", req.BookingID,
			"status", resp.StatusCode,
			"message", msg,
		)
		err := fmt.Errorf("%w: %s", paymentserrors.ErrGatewayRejected, msg)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "Payment gateway is temporarily unavailable", http.StatusServiceUnavailable)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "Payment gateway rejected the order: "+msg, http.StatusBadRequest)
	}

	var order Order
	if err := resp.DecodeJSON(&order); err != nil {
		return nil, apperrors.Internal("Failed to decode payment gateway response", err)
	}
	if order.ID == "" {
		return nil, apperrors.Internal("Payment gateway returned an order without an id", nil)
	}
	return &order, nil
}
