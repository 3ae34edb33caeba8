package discount

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trekkr/pkg/model"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func basePromo() *model.PromoCode {
	return &model.PromoCode{
		Code:       "MONSOON20",
		Type:       model.DiscountPercentage,
		Value:      20,
		ValidFrom:  now.Add(-24 * time.Hour),
		ValidUntil: now.Add(24 * time.Hour),
		IsPublic:   true,
		IsActive:   true,
	}
}

func baseInput() Input {
	return Input{
		EventID:       "evt1",
		EventCategory: "trekking",
		UserID:        "user-1",
		CartAmount:    decimal.NewFromInt(25000),
		Now:           now,
	}
}

func TestEvaluate_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		promo  func(p *model.PromoCode) *model.PromoCode
		input  func(in *Input)
		reason Reason
	}{
		{"unknown code", func(p *model.PromoCode) *model.PromoCode { return nil }, nil, ReasonInvalidCode},
		{"inactive", func(p *model.PromoCode) *model.PromoCode { p.IsActive = false; return p }, nil, ReasonInvalidCode},
		{"not started", func(p *model.PromoCode) *model.PromoCode { p.ValidFrom = now.Add(time.Hour); return p }, nil, ReasonOutsideValidityWindow},
		{"expired", func(p *model.PromoCode) *model.PromoCode { p.ValidUntil = now.Add(-time.Second); return p }, nil, ReasonOutsideValidityWindow},
		{"global limit", func(p *model.PromoCode) *model.PromoCode { p.UsageLimit = ptr(5); p.UsageCount = 5; return p }, nil, ReasonUsageLimitReached},
		{"user limit", func(p *model.PromoCode) *model.PromoCode { p.UserUsageLimit = ptr(1); return p }, func(in *Input) { in.UserUsages = 1 }, ReasonUserLimitReached},
		{"below minimum", func(p *model.PromoCode) *model.PromoCode { p.MinOrderAmount = ptr(30000.0); return p }, nil, ReasonBelowMinOrder},
		{"event not listed", func(p *model.PromoCode) *model.PromoCode { p.ApplicableEvents = []string{"evt2"}; return p }, nil, ReasonNotApplicable},
		{"category not listed", func(p *model.PromoCode) *model.PromoCode { p.ApplicableCategories = []string{"camping"}; return p }, nil, ReasonNotApplicable},
		{"excluded event", func(p *model.PromoCode) *model.PromoCode { p.ExcludedEvents = []string{"evt1"}; return p }, nil, ReasonEventExcluded},
		{"private code", func(p *model.PromoCode) *model.PromoCode {
			p.IsPublic = false
			p.TargetUsers = []string{"user-9"}
			return p
		}, nil, ReasonNotEligible},
		{
			name: "first failing rule wins",
			promo: func(p *model.PromoCode) *model.PromoCode {
				p.ValidUntil = now.Add(-time.Hour)
				p.ExcludedEvents = []string{"evt1"}
				return p
			},
			reason: ReasonOutsideValidityWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			if tt.input != nil {
				tt.input(&in)
			}
			_, err := Evaluate(tt.promo(basePromo()), in)
			var ruleErr *RuleError
			require.True(t, errors.As(err, &ruleErr), "got %v", err)
			assert.Equal(t, tt.reason, ruleErr.Reason)
			assert.NotEmpty(t, ruleErr.Message)
		})
	}
}

func TestEvaluate_Amounts(t *testing.T) {
	tests := []struct {
		name         string
		promo        func(p *model.PromoCode)
		cart         string
		wantDiscount string
		wantFinal    string
	}{
		{"percentage", func(p *model.PromoCode) {}, "25000", "5000.00", "20000.00"},
		{"percentage capped", func(p *model.PromoCode) { p.MaxDiscountAmount = ptr(1500.0) }, "25000", "1500.00", "23500.00"},
		{"fixed", func(p *model.PromoCode) { p.Type = model.DiscountFixedAmount; p.Value = 750 }, "25000", "750.00", "24250.00"},
		{"fixed larger than cart", func(p *model.PromoCode) { p.Type = model.DiscountFixedAmount; p.Value = 5000 }, "1200", "1200.00", "0.00"},
		{"rounds half away from zero", func(p *model.PromoCode) { p.Value = 12.5 }, "999.9", "124.99", "874.91"},
		{"category match", func(p *model.PromoCode) { p.ApplicableCategories = []string{"trekking"} }, "100", "20.00", "80.00"},
		{"targeted user", func(p *model.PromoCode) { p.IsPublic = false; p.TargetUsers = []string{"user-1"} }, "100", "20.00", "80.00"},
		{"minimum met exactly", func(p *model.PromoCode) { p.MinOrderAmount = ptr(100.0) }, "100", "20.00", "80.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePromo()
			tt.promo(p)
			in := baseInput()
			in.CartAmount = decimal.RequireFromString(tt.cart)

			res, err := Evaluate(p, in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDiscount, res.DiscountAmount.StringFixed(2))
			assert.Equal(t, tt.wantFinal, res.FinalAmount.StringFixed(2))
			assert.True(t, res.DiscountAmount.Add(res.FinalAmount).Equal(in.CartAmount))
		})
	}
}
