package model

import (
	"fmt"
	"time"
)

// SeatLedger counts seats held by PENDING and CONFIRMED bookings in one bucket.
type SeatLedger struct {
	ID        string    `json:"id" bson:"_id"`
	EventID   string    `json:"event_id" bson:"event_id"`
	Month     string    `json:"month" bson:"month"`
	Year      int       `json:"year" bson:"year"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	Reserved  int       `json:"reserved" bson:"reserved"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func SeatLedgerID(eventID, month string, year int) string {
	return fmt.Sprintf("%s:%s:%d", eventID, month, year)
}

func (l *SeatLedger) Remaining() int {
	return max(l.Capacity-l.Reserved, 0)
}

type Availability struct {
	EventID   string `json:"event_id"`
	Month     string `json:"month"`
	Year      int    `json:"year"`
	Days      []int  `json:"days"`
	Capacity  int    `json:"capacity"`
	Reserved  int    `json:"reserved"`
	Remaining int    `json:"remaining"`
}
