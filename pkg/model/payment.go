package model

type CreateOrderRequest struct {
	BookingID string  `json:"bookingId" validate:"required,max=64"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// VerifyPaymentRequest carries the checkout callback fields as the gateway names them.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	PaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	Signature string `json:"razorpay_signature" validate:"required,hexadecimal,max=128"`
	BookingID string `json:"bookingId" validate:"required,max=64"`
}
