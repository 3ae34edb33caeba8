// Package discount evaluates promo code rules without touching storage. The
// caller supplies the promo, the cart and the user's prior redemptions; the
// result is either a discount or the first rule that failed.
package discount

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"trekkr/pkg/model"
	"trekkr/pkg/money"
)

type Reason string

// Rules are checked in declaration order and the first failure wins.
const (
	ReasonInvalidCode           Reason = "invalid_code"
	ReasonOutsideValidityWindow Reason = "outside_validity_window"
	ReasonUsageLimitReached     Reason = "usage_limit_reached"
	ReasonUserLimitReached      Reason = "user_limit_reached"
	ReasonBelowMinOrder         Reason = "below_min_order"
	ReasonNotApplicable         Reason = "not_applicable"
	ReasonEventExcluded         Reason = "event_excluded"
	ReasonNotEligible           Reason = "not_eligible"
)

var messages = map[Reason]string{
	ReasonInvalidCode:           "Invalid or inactive promo code",
	ReasonOutsideValidityWindow: "Promo code is not valid at this time",
	ReasonUsageLimitReached:     "Promo code usage limit has been reached",
	ReasonUserLimitReached:      "You have already used this promo code the maximum number of times",
	ReasonNotApplicable:         "Promo code is not applicable to this event",
	ReasonEventExcluded:         "Promo code cannot be used for this event",
	ReasonNotEligible:           "You are not eligible for this promo code",
}

// RuleError names the rule a promo code failed.
type RuleError struct {
	Reason  Reason
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func Fail(reason Reason) *RuleError {
	return &RuleError{Reason: reason, Message: messages[reason]}
}

type Input struct {
	EventID       string
	EventCategory string
	UserID        string
	CartAmount    decimal.Decimal
	// UserUsages is how many times UserID has already redeemed the code.
	UserUsages int
	Now        time.Time
}

type Result struct {
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Evaluate applies promo to in. A nil promo is an unknown code.
func Evaluate(promo *model.PromoCode, in Input) (Result, error) {
	if err := check(promo, in); err != nil {
		return Result{}, err
	}

	cart := money.Round(in.CartAmount)
	var amount decimal.Decimal
	switch promo.Type {
	case model.DiscountPercentage:
		amount = money.Percent(cart, promo.Value)
	case model.DiscountFixedAmount:
		amount = decimal.NewFromFloat(promo.Value)
	default:
		return Result{}, Fail(ReasonInvalidCode)
	}

	if promo.MaxDiscountAmount != nil {
		amount = decimal.Min(amount, decimal.NewFromFloat(*promo.MaxDiscountAmount))
	}
	amount = money.Round(money.Clamp(amount, decimal.Zero, cart))

	return Result{
		DiscountAmount: amount,
		FinalAmount:    cart.Sub(amount),
	}, nil
}

func check(promo *model.PromoCode, in Input) *RuleError {
	if promo == nil || !promo.IsActive {
		return Fail(ReasonInvalidCode)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return Fail(ReasonOutsideValidityWindow)
	}

	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return Fail(ReasonUsageLimitReached)
	}

	if promo.UserUsageLimit != nil && in.UserUsages >= *promo.UserUsageLimit {
		return Fail(ReasonUserLimitReached)
	}

	if promo.MinOrderAmount != nil {
		minimum := decimal.NewFromFloat(*promo.MinOrderAmount)
		if in.CartAmount.LessThan(minimum) {
			return &RuleError{
				Reason:  ReasonBelowMinOrder,
				Message: fmt.Sprintf("Minimum order amount of %s required", money.Round(minimum).StringFixed(money.Places)),
			}
		}
	}

	switch {
	case len(promo.ApplicableEvents) > 0:
		if !slices.Contains(promo.ApplicableEvents, in.EventID) {
			return Fail(ReasonNotApplicable)
		}
	case len(promo.ApplicableCategories) > 0:
		if !slices.Contains(promo.ApplicableCategories, in.EventCategory) {
			return Fail(ReasonNotApplicable)
		}
	}

	if slices.Contains(promo.ExcludedEvents, in.EventID) {
		return Fail(ReasonEventExcluded)
	}

	if !promo.IsPublic && !slices.Contains(promo.TargetUsers, in.UserID) {
		return Fail(ReasonNotEligible)
	}

	return nil
}
