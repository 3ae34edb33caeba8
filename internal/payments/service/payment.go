package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"trekkr/internal/bookingevents"
	bookingserrors "trekkr/internal/bookings/errors"
	paymentserrors "trekkr/internal/payments/errors"
	"trekkr/internal/payments/gateway"
	"trekkr/pkg/auth"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/model"
	"trekkr/pkg/money"
	"trekkr/pkg/sealer"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, identity auth.Identity, req *model.CreateOrderRequest) (*gateway.Order, error)
	VerifyClientPayment(ctx context.Context, identity auth.Identity, req *model.VerifyPaymentRequest) (*model.Booking, error)
	// HandleWebhook only fails on a bad signature. Everything after that is
	// logged and acknowledged.
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error
}

// BookingStore is the slice of the bookings repository payments drive.
type BookingStore interface {
	FindByBookingID(ctx context.Context, bookingID string) (*model.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	SetOrder(ctx context.Context, bookingID, orderID string, amount float64, currency string) error
	MarkPaid(ctx context.Context, bookingID, paymentID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, bookingID, paymentID, reason string) (bool, error)
	FlagReconciliation(ctx context.Context, bookingID, paymentID string) error
	AttachDispute(ctx context.Context, paymentID string, dispute *model.Dispute) (bool, error)
}

type WebhookLedger interface {
	Claim(ctx context.Context, evt *model.WebhookEvent) error
	Release(ctx context.Context, eventID string) error
}

type paymentService struct {
	bookings  BookingStore
	webhooks  WebhookLedger
	gateway   gateway.Gateway
	publisher bookingevents.Publisher
	validate  *validator.Validate
	cfg       *config.Config
	now       func() time.Time
}

func NewPaymentService(
	bookings BookingStore,
	webhooks WebhookLedger,
	gw gateway.Gateway,
	publisher bookingevents.Publisher,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		bookings:  bookings,
		webhooks:  webhooks,
		gateway:   gw,
		publisher: publisher,
		validate:  model.NewValidator(),
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, identity auth.Identity, req *model.CreateOrderRequest) (*gateway.Order, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	b, err := s.findOwned(ctx, identity, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingPending || b.PaymentInfo.PaymentStatus == model.PaymentSuccess {
		return nil, apperrors.Conflict("Booking " + b.BookingID + " is not awaiting payment")
	}

	final := money.FromFloat(b.FinalAmount)
	if !money.Equal(money.FromFloat(req.Amount), final) {
		s.cfg.Log.Warn("Order amount does not match booking",
			"booking_id", b.BookingID,
			"expected", final.StringFixed(money.Places),
			"received", req.Amount,
		)
		return nil, apperrors.Validation("Amount does not match the booking total", map[string]any{
			"expected": money.Float(final),
			"received": req.Amount,
		})
	}

	currency := b.PaymentInfo.Currency
	if currency == "" {
		currency = s.cfg.PaymentCurrency
	}
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:    final,
		Currency:  currency,
		Receipt:   b.BookingID,
		BookingID: b.BookingID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.bookings.SetOrder(ctx, b.BookingID, order.ID, money.Float(final), currency); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Booking " + b.BookingID + " is not awaiting payment")
		}
		s.cfg.Log.Error("Failed to store payment order", "booking_id", b.BookingID, "order_id", order.ID, "error", err)
		return nil, apperrors.Internal("Failed to store payment order", err)
	}

	s.cfg.Log.Info("Payment order created",
		"booking_id", b.BookingID,
		"order_id", order.ID,
		"amount", final.StringFixed(money.Places),
		"currency", currency,
	)
	return order, nil
}

func (s *paymentService) VerifyClientPayment(ctx context.Context, identity auth.Identity, req *model.VerifyPaymentRequest) (*model.Booking, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.BookingID = strings.TrimSpace(req.BookingID)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if !sealer.VerifyParts(s.cfg.RazorpayKeySecret, req.Signature, req.OrderID, req.PaymentID) {
		s.cfg.Log.Security("Payment signature mismatch",
			"booking_id", req.BookingID,
			"order_id", req.OrderID,
			"payment_id", req.PaymentID,
			"user_id", identity.UserID,
		)
		return nil, apperrors.SignatureMismatch()
	}

	b, err := s.findOwned(ctx, identity, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.PaymentInfo.HasOrder(req.OrderID) {
		s.cfg.Log.Security("Order does not belong to booking",
			"booking_id", b.BookingID,
			"order_id", req.OrderID,
			"user_id", identity.UserID,
		)
		return nil, apperrors.SignatureMismatch()
	}

	return s.markPaid(ctx, b, req.PaymentID, "verify")
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if !sealer.Verify(s.cfg.RazorpayWebhookSecret, body, signature) {
		s.cfg.Log.Security("Webhook signature mismatch", "event_id", eventID)
		return apperrors.SignatureMismatch()
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.cfg.Log.Error("Webhook body is not valid JSON", "event_id", eventID, "error", err)
		return nil
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		eventID = sealer.Sign(s.cfg.RazorpayWebhookSecret, body)
	}
	claim := &model.WebhookEvent{
		ID:         eventID,
		Type:       env.Event,
		OrderID:    env.orderID(),
		PaymentID:  env.paymentID(),
		ReceivedAt: s.now().UTC(),
	}
	log := s.cfg.Log.With("event_id", eventID, "event", env.Event)

	// Every mutation below is conditional, so an unclaimed event is still
	// safe to apply.
	claimed := true
	if err := s.webhooks.Claim(ctx, claim); err != nil {
		if errors.Is(err, paymentserrors.ErrDuplicateWebhookEvent) {
			log.Info("Webhook replay ignored")
			return nil
		}
		log.Error("Failed to record webhook event, processing unclaimed", "error", err)
		claimed = false
	}

	if err := s.dispatch(ctx, &env, claim); err != nil {
		log.Error("Webhook processing failed", "order_id", claim.OrderID, "payment_id", claim.PaymentID, "error", err)
		if claimed {
			s.release(ctx, eventID)
		}
	}
	return nil
}

// dispatch applies one webhook event. It returns an error only when the
// event could not be applied and a redelivery should be processed again.
func (s *paymentService) dispatch(ctx context.Context, env *webhookEnvelope, claim *model.WebhookEvent) error {
	log := s.cfg.Log.With("event_id", claim.ID, "event", env.Event)

	switch env.Event {
	case WebhookPaymentCaptured, WebhookOrderPaid:
		b, err := s.bookingForOrder(ctx, claim.OrderID, env.Event)
		if err != nil || b == nil {
			return err
		}
		if _, err := s.markPaid(ctx, b, claim.PaymentID, "webhook"); err != nil {
			if retryable(err) {
				return err
			}
			log.Warn("Webhook payment not applied", "booking_id", b.BookingID, "error", err)
		}

	case WebhookPaymentFailed:
		b, err := s.bookingForOrder(ctx, claim.OrderID, env.Event)
		if err != nil || b == nil {
			return err
		}
		if b.PaymentInfo.OrderID != claim.OrderID {
			log.Info("Payment failure on superseded order ignored", "booking_id", b.BookingID)
			return nil
		}
		reason := env.payment().failureReason()
		applied, err := s.bookings.MarkFailed(ctx, b.BookingID, claim.PaymentID, reason)
		switch {
		case err != nil:
			return fmt.Errorf("failed to record payment failure for %s: %w", b.BookingID, err)
		case !applied:
			log.Info("Payment failure ignored, booking already paid or closed", "booking_id", b.BookingID)
		default:
			log.Info("Payment failure recorded", "booking_id", b.BookingID, "reason", reason)
		}

	case WebhookDisputeCreated:
		dispute := env.dispute()
		if dispute == nil || claim.PaymentID == "" {
			log.Warn("Dispute webhook without dispute or payment id")
			return nil
		}
		attached, err := s.bookings.AttachDispute(ctx, claim.PaymentID, dispute)
		switch {
		case err != nil:
			return fmt.Errorf("failed to attach dispute %s: %w", dispute.ID, err)
		case !attached:
			log.Warn("Dispute for unknown payment", "payment_id", claim.PaymentID)
		default:
			log.Warn("Payment disputed", "payment_id", claim.PaymentID, "dispute_id", dispute.ID, "reason_code", dispute.ReasonCode)
		}

	default:
		log.Info("Unhandled webhook event ignored")
	}
	return nil
}

// release drops the claim on an event that failed, so the gateway's next
// delivery is not taken for a replay.
func (s *paymentService) release(ctx context.Context, eventID string) {
	if err := s.webhooks.Release(context.WithoutCancel(ctx), eventID); err != nil {
		s.cfg.Log.Error("Failed to release webhook event", "event_id", eventID, "error", err)
	}
}

func retryable(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeInternal) || errors.Is(err, paymentserrors.ErrConcurrentUpdate)
}

// markPaid confirms b. Only the caller whose conditional update matched
// publishes booking.confirmed.
func (s *paymentService) markPaid(ctx context.Context, b *model.Booking, paymentID, source string) (*model.Booking, error) {
	paidAt := s.now().UTC().Truncate(time.Millisecond)
	ok, err := s.bookings.MarkPaid(ctx, b.BookingID, paymentID, paidAt)
	if err != nil {
		s.cfg.Log.Error("Failed to mark booking paid", "booking_id", b.BookingID, "source", source, "error", err)
		return nil, apperrors.Internal("Failed to confirm payment", err)
	}

	if ok {
		confirmed := *b
		confirmed.Status = model.BookingConfirmed
		confirmed.PaymentInfo.PaymentStatus = model.PaymentSuccess
		confirmed.PaymentInfo.PaymentID = paymentID
		confirmed.PaymentInfo.PaidAt = &paidAt
		confirmed.PaymentInfo.FailureReason = ""
		confirmed.UpdatedAt = paidAt

		s.cfg.Log.Info("Booking confirmed",
			"booking_id", b.BookingID,
			"payment_id", paymentID,
			"source", source,
		)
		s.publish(ctx, model.EventBookingConfirmed, &confirmed, "")
		return &confirmed, nil
	}

	current, err := s.bookings.FindByBookingID(ctx, b.BookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to reload booking", "booking_id", b.BookingID, "error", err)
		return nil, apperrors.Internal("Failed to confirm payment", err)
	}
	if current.PaymentInfo.PaymentStatus == model.PaymentSuccess {
		paidWith := current.PaymentInfo.PaymentID
		if paymentID == "" || paidWith == "" || paidWith == paymentID {
			s.cfg.Log.Info("Payment already applied", "booking_id", b.BookingID, "source", source)
			return current, nil
		}
		// A second capture on an already paid booking, typically through an
		// order that a later CreateOrder replaced.
		if err := s.bookings.FlagReconciliation(ctx, b.BookingID, ""); err != nil {
			s.cfg.Log.Error("Failed to flag booking for reconciliation", "booking_id", b.BookingID, "error", err)
		}
		s.cfg.Log.Error("Second payment captured for a paid booking",
			"booking_id", b.BookingID,
			"paid_with", paidWith,
			"payment_id", paymentID,
			"source", source,
		)
		current.PaymentInfo.ReconciliationRequired = true
		s.publish(ctx, model.EventPaymentConflict, current, "second payment "+paymentID+" captured for paid booking")
		return nil, apperrors.Conflict("Booking " + b.BookingID + " is already paid; the payment needs manual reconciliation")
	}
	if current.Status == model.BookingPending {
		return nil, apperrors.Wrap(paymentserrors.ErrConcurrentUpdate, apperrors.CodeConflict,
			"Booking "+b.BookingID+" was modified concurrently, please retry", http.StatusConflict)
	}

	if err := s.bookings.FlagReconciliation(ctx, b.BookingID, paymentID); err != nil {
		s.cfg.Log.Error("Failed to flag booking for reconciliation", "booking_id", b.BookingID, "error", err)
	}
	s.cfg.Log.Error("Payment captured for a booking that is no longer pending",
		"booking_id", b.BookingID,
		"status", current.Status,
		"payment_id", paymentID,
		"source", source,
	)
	current.PaymentInfo.ReconciliationRequired = true
	s.publish(ctx, model.EventPaymentConflict, current, "payment received for "+strings.ToLower(string(current.Status))+" booking")
	return nil, apperrors.Conflict("Booking " + b.BookingID + " is " + string(current.Status) + "; the payment needs manual reconciliation")
}

// bookingForOrder returns nil without an error when the order is unknown.
func (s *paymentService) bookingForOrder(ctx context.Context, orderID, event string) (*model.Booking, error) {
	if orderID == "" {
		s.cfg.Log.Warn("Webhook without order id", "event", event)
		return nil, nil
	}
	b, err := s.bookings.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			s.cfg.Log.Warn("Webhook for unknown order", "order_id", orderID, "event", event)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find booking for order %s: %w", orderID, err)
	}
	if b.PaymentInfo.OrderID != orderID {
		s.cfg.Log.Warn("Webhook for superseded order",
			"booking_id", b.BookingID,
			"order_id", orderID,
			"current_order_id", b.PaymentInfo.OrderID,
			"event", event,
		)
	}
	return b, nil
}

func (s *paymentService) findOwned(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
	b, err := s.bookings.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if b.UserID != identity.UserID && !identity.IsStaff() {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return b, nil
}

func (s *paymentService) validateRequest(req any) error {
	if err := model.ValidateStruct(s.validate, req, nil); err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Payment request validation failed", verrs.Details())
		}
		return apperrors.Validation("Payment request validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *paymentService) publish(ctx context.Context, eventType string, b *model.Booking, reason string) {
	if err := s.publisher.Publish(ctx, model.NewBookingEvent(eventType, b, model.SystemActor, reason)); err != nil {
		s.cfg.Log.Error("Failed to publish booking event", "event_type", eventType, "booking_id", b.BookingID, "error", err)
	}
}
