package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

func validEvent() *model.Event {
	return &model.Event{
		Title:           "Hampta Pass Trek",
		Category:        "trekking",
		Price:           12500,
		MaxParticipants: 20,
		AvailableDates: []model.AvailableDate{
			{Month: "June", Year: 2025, Days: []int{5, 19}},
			{Month: "February", Year: 2024, Days: []int{29}},
		},
		TimeZone: "Asia/Kolkata",
		IsActive: true,
	}
}

func TestEventValidator_Validate(t *testing.T) {
	v := NewEventValidator(logger.Discard())

	tests := []struct {
		name    string
		mutate  func(e *model.Event)
		wantErr string
	}{
		{name: "valid event", mutate: func(e *model.Event) {}},
		{
			name:    "missing title",
			mutate:  func(e *model.Event) { e.Title = "" },
			wantErr: "title is required",
		},
		{
			name:    "zero price",
			mutate:  func(e *model.Event) { e.Price = 0 },
			wantErr: "price must be greater than 0",
		},
		{
			name:    "unknown month",
			mutate:  func(e *model.Event) { e.AvailableDates[0].Month = "Juneteenth" },
			wantErr: "month must be a month name",
		},
		{
			name:    "bad time zone",
			mutate:  func(e *model.Event) { e.TimeZone = "Mars/Olympus" },
			wantErr: "time_zone must be an IANA time zone name",
		},
		{
			name: "duplicate bucket",
			mutate: func(e *model.Event) {
				e.AvailableDates = append(e.AvailableDates, model.AvailableDate{Month: "June", Year: 2025, Days: []int{1}})
			},
			wantErr: "June 2025 is listed more than once",
		},
		{
			name:    "day outside month",
			mutate:  func(e *model.Event) { e.AvailableDates[1].Year = 2025 },
			wantErr: "February 2025 has no day 29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := v.Validate(e)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verrs model.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
