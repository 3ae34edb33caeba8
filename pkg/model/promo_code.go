package model

import "time"

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

type PromoCode struct {
	ID                   string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Code                 string       `json:"code" bson:"code" validate:"required,min=3,max=30,alphanum"`
	Description          string       `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	Type                 DiscountType `json:"type" bson:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value                float64      `json:"value" bson:"value" validate:"gt=0"`
	MinOrderAmount       *float64     `json:"min_order_amount,omitempty" bson:"min_order_amount,omitempty" validate:"omitempty,gte=0"`
	MaxDiscountAmount    *float64     `json:"max_discount_amount,omitempty" bson:"max_discount_amount,omitempty" validate:"omitempty,gt=0"`
	UsageLimit           *int         `json:"usage_limit,omitempty" bson:"usage_limit,omitempty" validate:"omitempty,min=1"`
	UsageCount           int          `json:"usage_count" bson:"usage_count" validate:"min=0"`
	UserUsageLimit       *int         `json:"user_usage_limit,omitempty" bson:"user_usage_limit,omitempty" validate:"omitempty,min=1"`
	ValidFrom            time.Time    `json:"valid_from" bson:"valid_from" validate:"required"`
	ValidUntil           time.Time    `json:"valid_until" bson:"valid_until" validate:"required,gtfield=ValidFrom"`
	ApplicableEvents     []string     `json:"applicable_events,omitempty" bson:"applicable_events" validate:"omitempty,dive,mongodb"`
	ApplicableCategories []string     `json:"applicable_categories,omitempty" bson:"applicable_categories" validate:"omitempty,dive,min=2,max=50"`
	ExcludedEvents       []string     `json:"excluded_events,omitempty" bson:"excluded_events" validate:"omitempty,dive,mongodb"`
	IsPublic             bool         `json:"is_public" bson:"is_public"`
	TargetUsers          []string     `json:"target_users,omitempty" bson:"target_users" validate:"omitempty,dive,required"`
	IsActive             bool         `json:"is_active" bson:"is_active"`
	CreatedAt            time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at" bson:"updated_at"`
}

type PromoCodeUpdate struct {
	Description          *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Value                *float64   `json:"value,omitempty" validate:"omitempty,gt=0"`
	MinOrderAmount       *float64   `json:"min_order_amount,omitempty" validate:"omitempty,gte=0"`
	MaxDiscountAmount    *float64   `json:"max_discount_amount,omitempty" validate:"omitempty,gt=0"`
	UsageLimit           *int       `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	UserUsageLimit       *int       `json:"user_usage_limit,omitempty" validate:"omitempty,min=1"`
	ValidFrom            *time.Time `json:"valid_from,omitempty"`
	ValidUntil           *time.Time `json:"valid_until,omitempty"`
	ApplicableEvents     *[]string  `json:"applicable_events,omitempty" validate:"omitempty,dive,mongodb"`
	ApplicableCategories *[]string  `json:"applicable_categories,omitempty" validate:"omitempty,dive,min=2,max=50"`
	ExcludedEvents       *[]string  `json:"excluded_events,omitempty" validate:"omitempty,dive,mongodb"`
	IsPublic             *bool      `json:"is_public,omitempty"`
	TargetUsers          *[]string  `json:"target_users,omitempty" validate:"omitempty,dive,required"`
	IsActive             *bool      `json:"is_active,omitempty"`
}

// PromoCodeUsage is written once per booking that redeemed a code.
type PromoCodeUsage struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty"`
	PromoCodeID    string    `json:"promo_code_id" bson:"promo_code_id"`
	Code           string    `json:"code" bson:"code"`
	UserID         string    `json:"user_id" bson:"user_id"`
	BookingID      string    `json:"booking_id" bson:"booking_id"`
	OriginalAmount float64   `json:"original_amount" bson:"original_amount"`
	DiscountAmount float64   `json:"discount_amount" bson:"discount_amount"`
	FinalAmount    float64   `json:"final_amount" bson:"final_amount"`
	UsedAt         time.Time `json:"used_at" bson:"used_at"`
}

type PromoCodeFilter struct {
	ActiveOnly bool
}
