package model

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingRefunded  = "booking.refunded"
	EventPaymentConflict  = "payment.conflict"
)

// BookingEvent is the payload published on the booking events topic. It
// carries enough of the booking for consumers to locate its seat bucket.
type BookingEvent struct {
	Type          string        `json:"type"`
	BookingID     string        `json:"booking_id"`
	UserID        string        `json:"user_id"`
	EventID       string        `json:"event_id"`
	SelectedMonth string        `json:"selected_month"`
	SelectedYear  int           `json:"selected_year"`
	Seats         int           `json:"seats"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	FinalAmount   float64       `json:"final_amount"`
	Actor         string        `json:"actor,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *Booking, actor, reason string) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		EventID:       b.EventID,
		SelectedMonth: b.SelectedMonth,
		SelectedYear:  b.SelectedYear,
		Seats:         b.Seats(),
		Status:        b.Status,
		PaymentStatus: b.PaymentInfo.PaymentStatus,
		FinalAmount:   b.FinalAmount,
		Actor:         actor,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}
