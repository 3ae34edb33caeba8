package model

import (
	"strings"
	"time"
)

// AvailableDate is one departure bucket of an event: the days of a month on
// which the trip starts and the seats sold across them.
type AvailableDate struct {
	Month          string `json:"month" bson:"month" validate:"required,month_name"`
	Year           int    `json:"year" bson:"year" validate:"required,min=2000,max=2100"`
	Days           []int  `json:"days" bson:"days" validate:"required,min=1,max=31,dive,min=1,max=31"`
	TotalSeats     int    `json:"total_seats,omitempty" bson:"total_seats,omitempty" validate:"omitempty,min=0,max=10000"`
	AvailableSeats int    `json:"available_seats,omitempty" bson:"available_seats,omitempty" validate:"omitempty,min=0,max=10000"`
}

// Capacity resolves the seat ceiling of the bucket: available seats, then
// total seats, then the event-wide participant cap. The first positive wins.
func (d AvailableDate) Capacity(maxParticipants int) int {
	for _, c := range []int{d.AvailableSeats, d.TotalSeats, maxParticipants} {
		if c > 0 {
			return c
		}
	}
	return 0
}

func (d AvailableDate) HasDay(day int) bool {
	for _, candidate := range d.Days {
		if candidate == day {
			return true
		}
	}
	return false
}

type Event struct {
	ID              string          `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title           string          `json:"title" bson:"title" validate:"required,min=3,max=150"`
	Description     string          `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=5000"`
	Category        string          `json:"category" bson:"category" validate:"required,min=2,max=50"`
	Location        string          `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	Price           float64         `json:"price" bson:"price" validate:"gt=0"`
	MaxParticipants int             `json:"max_participants,omitempty" bson:"max_participants,omitempty" validate:"omitempty,min=1,max=10000"`
	AvailableDates  []AvailableDate `json:"available_dates" bson:"available_dates" validate:"omitempty,max=60,dive"`
	ImageURLs       []string        `json:"image_urls,omitempty" bson:"image_urls,omitempty" validate:"omitempty,max=20,dive,url"`
	TimeZone        string          `json:"time_zone,omitempty" bson:"time_zone,omitempty" validate:"omitempty,timezone"`
	IsActive        bool            `json:"is_active" bson:"is_active"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// FindDate returns the bucket for month (any casing) and year.
func (e *Event) FindDate(month string, year int) (AvailableDate, bool) {
	for _, d := range e.AvailableDates {
		if d.Year == year && strings.EqualFold(d.Month, month) {
			return d, true
		}
	}
	return AvailableDate{}, false
}

type EventUpdate struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,min=3,max=150"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,min=2,max=50"`
	Location        *string          `json:"location,omitempty" validate:"omitempty,max=200"`
	Price           *float64         `json:"price,omitempty" validate:"omitempty,gt=0"`
	MaxParticipants *int             `json:"max_participants,omitempty" validate:"omitempty,min=1,max=10000"`
	AvailableDates  *[]AvailableDate `json:"available_dates,omitempty" validate:"omitempty,max=60,dive"`
	ImageURLs       *[]string        `json:"image_urls,omitempty" validate:"omitempty,max=20,dive,url"`
	TimeZone        *string          `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	IsActive        *bool            `json:"is_active,omitempty"`
}

type EventFilter struct {
	Category   string
	ActiveOnly bool
}
