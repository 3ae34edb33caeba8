package service

import (
	"time"

	"trekkr/pkg/model"
	"trekkr/pkg/money"
)

const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookOrderPaid       = "order.paid"
	WebhookPaymentFailed   = "payment.failed"
	WebhookDisputeCreated  = "payment.dispute.created"
)

type webhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	ErrorReason      string `json:"error_reason"`
}

type webhookOrder struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type webhookDispute struct {
	ID         string `json:"id"`
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	ReasonCode string `json:"reason_code"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// webhookEnvelope is the subset of the gateway's event body we act on.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity webhookOrder `json:"entity"`
		} `json:"order"`
		Dispute *struct {
			Entity webhookDispute `json:"entity"`
		} `json:"dispute"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

func (e *webhookEnvelope) payment() webhookPayment {
	if e.Payload.Payment == nil {
		return webhookPayment{}
	}
	return e.Payload.Payment.Entity
}

func (e *webhookEnvelope) orderID() string {
	if e.Payload.Order != nil && e.Payload.Order.Entity.ID != "" {
		return e.Payload.Order.Entity.ID
	}
	return e.payment().OrderID
}

func (e *webhookEnvelope) paymentID() string {
	if id := e.payment().ID; id != "" {
		return id
	}
	if e.Payload.Dispute != nil {
		return e.Payload.Dispute.Entity.PaymentID
	}
	return ""
}

func (e *webhookEnvelope) dispute() *model.Dispute {
	if e.Payload.Dispute == nil {
		return nil
	}
	d := e.Payload.Dispute.Entity
	createdAt := time.Now().UTC()
	if d.CreatedAt > 0 {
		createdAt = time.Unix(d.CreatedAt, 0).UTC()
	}
	return &model.Dispute{
		ID:         d.ID,
		Amount:     money.Float(money.FromMinor(d.Amount)),
		Currency:   d.Currency,
		ReasonCode: d.ReasonCode,
		Status:     d.Status,
		CreatedAt:  createdAt,
	}
}

func (p webhookPayment) failureReason() string {
	for _, s := range []string{p.ErrorDescription, p.ErrorReason, p.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return "payment failed"
}
