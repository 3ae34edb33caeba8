package model

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingRefunded  BookingStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// SystemActor stamps transitions made by background jobs.
const SystemActor = "system"

type EmergencyContact struct {
	Name     string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" bson:"phone" validate:"required,e164"`
	Relation string `json:"relation" bson:"relation" validate:"required,min=2,max=50"`
}

type Participant struct {
	Name             string           `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email            string           `json:"email" bson:"email" validate:"required,email"`
	Phone            string           `json:"phone" bson:"phone" validate:"required,e164"`
	Age              *int             `json:"age,omitempty" bson:"age,omitempty" validate:"omitempty,min=1,max=120"`
	EmergencyContact EmergencyContact `json:"emergency_contact" bson:"emergency_contact" validate:"required"`
}

type Dispute struct {
	ID         string    `json:"id" bson:"id"`
	Amount     float64   `json:"amount" bson:"amount"`
	Currency   string    `json:"currency" bson:"currency"`
	ReasonCode string    `json:"reason_code" bson:"reason_code"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

type PaymentInfo struct {
	OrderID                string        `json:"order_id,omitempty" bson:"order_id,omitempty"`
	OrderIDs               []string      `json:"order_ids,omitempty" bson:"order_ids,omitempty"`
	PaymentID              string        `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	PaymentStatus          PaymentStatus `json:"payment_status" bson:"payment_status"`
	Amount                 float64       `json:"amount,omitempty" bson:"amount,omitempty"`
	Currency               string        `json:"currency,omitempty" bson:"currency,omitempty"`
	PaidAt                 *time.Time    `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	FailureReason          string        `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	Dispute                *Dispute      `json:"dispute,omitempty" bson:"dispute,omitempty"`
	ReconciliationRequired bool          `json:"reconciliation_required,omitempty" bson:"reconciliation_required,omitempty"`
}

// HasOrder reports whether id is the current order or one it replaced.
func (p PaymentInfo) HasOrder(id string) bool {
	if id == "" {
		return false
	}
	if p.OrderID == id {
		return true
	}
	for _, o := range p.OrderIDs {
		if o == id {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                 string        `json:"-" bson:"_id,omitempty"`
	BookingID          string        `json:"booking_id" bson:"booking_id"`
	UserID             string        `json:"user_id" bson:"user_id"`
	EventID            string        `json:"event_id" bson:"event_id"`
	EventTitle         string        `json:"event_title" bson:"event_title"`
	SelectedDate       time.Time     `json:"selected_date" bson:"selected_date"`
	SelectedDay        int           `json:"selected_day" bson:"selected_day"`
	SelectedMonth      string        `json:"selected_month" bson:"selected_month"`
	SelectedYear       int           `json:"selected_year" bson:"selected_year"`
	Participants       []Participant `json:"participants" bson:"participants"`
	SpecialRequests    string        `json:"special_requests,omitempty" bson:"special_requests,omitempty"`
	PricePerPerson     float64       `json:"price_per_person" bson:"price_per_person"`
	TotalAmount        float64       `json:"total_amount" bson:"total_amount"`
	DiscountAmount     float64       `json:"discount_amount" bson:"discount_amount"`
	FinalAmount        float64       `json:"final_amount" bson:"final_amount"`
	PromoCode          string        `json:"promo_code,omitempty" bson:"promo_code,omitempty"`
	Status             BookingStatus `json:"status" bson:"status"`
	PaymentInfo        PaymentInfo   `json:"payment_info" bson:"payment_info"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancelledBy        string        `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	RefundedAt         *time.Time    `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// Seats is the number of inventory seats the booking holds.
func (b *Booking) Seats() int {
	return len(b.Participants)
}

// HoldsSeats reports whether the booking counts toward its bucket's capacity.
func (b *Booking) HoldsSeats() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// CreateBookingRequest is the client payload for a new reservation. Amounts
// sent by the client are never trusted.
type CreateBookingRequest struct {
	EventID         string        `json:"eventId" validate:"required,mongodb"`
	SelectedDate    string        `json:"selectedDate" validate:"required,datetime=2006-01-02"`
	SelectedMonth   string        `json:"selectedMonth" validate:"required,month_name"`
	SelectedYear    int           `json:"selectedYear" validate:"required,min=2000,max=2100"`
	Participants    []Participant `json:"participants" validate:"required,min=1,max=50,dive"`
	TotalAmount     *float64      `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	SpecialRequests string        `json:"specialRequests,omitempty" validate:"omitempty,max=2000"`
	PromoCode       string        `json:"promoCode,omitempty" validate:"omitempty,min=3,max=30"`
}

type BookingFilter struct {
	UserID  string
	EventID string
	Status  BookingStatus
}
