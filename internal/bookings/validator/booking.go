package validator

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"trekkr/pkg/logger"
	"trekkr/pkg/model"
	"trekkr/pkg/sanitizer"
)

const DateLayout = "2006-01-02"

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: model.NewValidator(),
		logger:   log,
	}
}

var messages = map[string]string{
	"datetime": "selectedDate must be a date in YYYY-MM-DD format",
}

// ValidateCreate checks the request shape and that selectedDate agrees with
// selectedMonth and selectedYear. It returns the parsed selectedDate.
func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) (time.Time, error) {
	if err := model.ValidateStruct(v.validate, req, messages); err != nil {
		return time.Time{}, err
	}

	date, err := time.Parse(DateLayout, req.SelectedDate)
	if err != nil {
		return time.Time{}, model.ValidationErrors{{Field: "selectedDate", Message: messages["datetime"]}}
	}
	month := sanitizer.NormalizeMonth(req.SelectedMonth)
	if date.Month().String() != month || date.Year() != req.SelectedYear {
		return time.Time{}, model.ValidationErrors{{
			Field:   "selectedDate",
			Message: fmt.Sprintf("selectedDate %s is not in %s %d", req.SelectedDate, month, req.SelectedYear),
		}}
	}
	return date, nil
}
