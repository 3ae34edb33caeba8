package validator

import (
	"github.com/go-playground/validator/v10"

	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type PromoCodeValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPromoCodeValidator(log *logger.Logger) *PromoCodeValidator {
	return &PromoCodeValidator{
		validate: model.NewValidator(),
		logger:   log,
	}
}

var messages = map[string]string{
	"alphanum": "code may only contain letters and digits",
	"gtfield":  "valid_until must be after valid_from",
}

func (v *PromoCodeValidator) Validate(p *model.PromoCode) error {
	if err := model.ValidateStruct(v.validate, p, messages); err != nil {
		return err
	}

	var errs model.ValidationErrors
	if p.Type == model.DiscountPercentage && p.Value > 100 {
		errs = append(errs, model.ValidationError{Field: "value", Message: "percentage discounts cannot exceed 100"})
	}
	if p.UsageLimit != nil && p.UsageCount > *p.UsageLimit {
		errs = append(errs, model.ValidationError{Field: "usage_limit", Message: "usage_limit cannot be below the current usage_count"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
