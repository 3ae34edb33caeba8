package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type EventValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewEventValidator(log *logger.Logger) *EventValidator {
	return &EventValidator{
		validate: model.NewValidator(),
		logger:   log,
	}
}

var messages = map[string]string{
	"timezone": "time_zone must be an IANA time zone name",
	"url":      "image_urls must contain absolute URLs",
}

func (v *EventValidator) Validate(e *model.Event) error {
	if err := model.ValidateStruct(v.validate, e, messages); err != nil {
		return err
	}
	return v.validateBusinessRules(e)
}

// validateBusinessRules checks what struct tags cannot: one bucket per
// month and year, and days that exist in that month.
func (v *EventValidator) validateBusinessRules(e *model.Event) error {
	var errs model.ValidationErrors
	seen := make(map[string]bool, len(e.AvailableDates))

	for i, d := range e.AvailableDates {
		key := model.SeatLedgerID("", d.Month, d.Year)
		if seen[key] {
			errs = append(errs, model.ValidationError{
				Field:   fmt.Sprintf("available_dates[%d]", i),
				Message: fmt.Sprintf("%s %d is listed more than once", d.Month, d.Year),
			})
		}
		seen[key] = true

		month, err := time.Parse("January", d.Month)
		if err != nil {
			continue
		}
		lastDay := time.Date(d.Year, month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		for _, day := range d.Days {
			if day > lastDay {
				errs = append(errs, model.ValidationError{
					Field:   fmt.Sprintf("available_dates[%d].days", i),
					Message: fmt.Sprintf("%s %d has no day %d", d.Month, d.Year, day),
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
