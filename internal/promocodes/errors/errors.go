package errors

import "errors"

var (
	ErrNotFound = errors.New("promo code not found")

	ErrInvalidID = errors.New("invalid promo code ID format")

	ErrDuplicateCode = errors.New("promo code already exists")

	// ErrUsageLimitReached is returned when the guarded counter increment
	// matched nothing because usage_count already reached usage_limit.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")

	ErrUsageExists = errors.New("promo code already redeemed for this booking")

	ErrUsageNotFound = errors.New("promo code usage not found")
)
