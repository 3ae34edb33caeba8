package model

import "time"

// WebhookEvent records a processed gateway delivery; the gateway event id is the key.
type WebhookEvent struct {
	ID         string    `bson:"_id"`
	Type       string    `bson:"type"`
	OrderID    string    `bson:"order_id,omitempty"`
	PaymentID  string    `bson:"payment_id,omitempty"`
	ReceivedAt time.Time `bson:"received_at"`
}
