package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	promoerrors "trekkr/internal/promocodes/errors"
	"trekkr/internal/promocodes/validator"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type mockPromoCodeRepository struct {
	createFunc           func(ctx context.Context, p *model.PromoCode) error
	findByIDFunc         func(ctx context.Context, id string) (*model.PromoCode, error)
	findByCodeFunc       func(ctx context.Context, code string) (*model.PromoCode, error)
	updateFunc           func(ctx context.Context, id string, p *model.PromoCode) error
	incrementUsageFunc   func(ctx context.Context, id string) error
	decrementUsageFunc   func(ctx context.Context, id string) error
	insertUsageFunc      func(ctx context.Context, u *model.PromoCodeUsage) error
	findUsageFunc        func(ctx context.Context, bookingID string) (*model.PromoCodeUsage, error)
	deleteUsageFunc      func(ctx context.Context, bookingID string) error
	countUserUsageFunc   func(ctx context.Context, code, userID string) (int, error)
	deactivateFunc       func(ctx context.Context, id string) error
	countUserUsageCalled int
}

func (m *mockPromoCodeRepository) Create(ctx context.Context, p *model.PromoCode) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	p.ID = "65a1f0c2e4b0a1b2c3d4e5f6"
	return nil
}

func (m *mockPromoCodeRepository) FindByID(ctx context.Context, id string) (*model.PromoCode, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, id)
}

func (m *mockPromoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if m.findByCodeFunc != nil {
		return m.findByCodeFunc(ctx, code)
	}
	return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, code)
}

func (m *mockPromoCodeRepository) FindAll(ctx context.Context, filter model.PromoCodeFilter, limit int, offset int64) ([]*model.PromoCode, error) {
	return []*model.PromoCode{}, nil
}

func (m *mockPromoCodeRepository) Count(ctx context.Context, filter model.PromoCodeFilter) (int64, error) {
	return 0, nil
}

func (m *mockPromoCodeRepository) Update(ctx context.Context, id string, p *model.PromoCode) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, p)
	}
	return nil
}

func (m *mockPromoCodeRepository) Deactivate(ctx context.Context, id string) error {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, id)
	}
	return nil
}

func (m *mockPromoCodeRepository) IncrementUsage(ctx context.Context, id string) error {
	if m.incrementUsageFunc != nil {
		return m.incrementUsageFunc(ctx, id)
	}
	return nil
}

func (m *mockPromoCodeRepository) DecrementUsage(ctx context.Context, id string) error {
	if m.decrementUsageFunc != nil {
		return m.decrementUsageFunc(ctx, id)
	}
	return nil
}

func (m *mockPromoCodeRepository) InsertUsage(ctx context.Context, u *model.PromoCodeUsage) error {
	if m.insertUsageFunc != nil {
		return m.insertUsageFunc(ctx, u)
	}
	return nil
}

func (m *mockPromoCodeRepository) FindUsageByBooking(ctx context.Context, bookingID string) (*model.PromoCodeUsage, error) {
	if m.findUsageFunc != nil {
		return m.findUsageFunc(ctx, bookingID)
	}
	return nil, fmt.Errorf("%w: %s", promoerrors.ErrUsageNotFound, bookingID)
}

func (m *mockPromoCodeRepository) DeleteUsageByBooking(ctx context.Context, bookingID string) error {
	if m.deleteUsageFunc != nil {
		return m.deleteUsageFunc(ctx, bookingID)
	}
	return nil
}

func (m *mockPromoCodeRepository) CountUserUsage(ctx context.Context, code, userID string) (int, error) {
	m.countUserUsageCalled++
	if m.countUserUsageFunc != nil {
		return m.countUserUsageFunc(ctx, code, userID)
	}
	return 0, nil
}

func (m *mockPromoCodeRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return mongotx.NoopTransactionManager{}.ExecuteTransaction(ctx, fn)
}

type mockEventLookup struct {
	event *model.Event
}

func (m *mockEventLookup) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if m.event == nil || m.event.ID != id {
		return nil, apperrors.NotFoundWithID("Event", id)
	}
	return m.event, nil
}

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(repo *mockPromoCodeRepository) *promoCodeService {
	cfg := &config.Config{Log: logger.Discard(), ReadTimeout: 5 * time.Second}
	svc := NewPromoCodeService(repo, validator.NewPromoCodeValidator(cfg.Log), &mockEventLookup{event: trek()}, cfg).(*promoCodeService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func trek() *model.Event {
	return &model.Event{ID: "507f1f77bcf86cd799439011", Title: "Hampta Pass Trek", Category: "trekking", Price: 12500, IsActive: true}
}

func intPtr(v int) *int { return &v }

func storedPromo() *model.PromoCode {
	return &model.PromoCode{
		ID:         "65a1f0c2e4b0a1b2c3d4e5f6",
		Code:       "MONSOON20",
		Type:       model.DiscountPercentage,
		Value:      20,
		ValidFrom:  fixedNow.Add(-24 * time.Hour),
		ValidUntil: fixedNow.Add(24 * time.Hour),
		IsPublic:   true,
		IsActive:   true,
	}
}

func TestEvaluate_NormalizesCodeAndComputesDiscount(t *testing.T) {
	var lookedUp string
	svc := newTestService(&mockPromoCodeRepository{
		findByCodeFunc: func(ctx context.Context, code string) (*model.PromoCode, error) {
			lookedUp = code
			return storedPromo(), nil
		},
	})

	eval, err := svc.Evaluate(context.Background(), "  monsoon20 ", trek().ID, "user-1", decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.Equal(t, "MONSOON20", lookedUp)
	assert.Equal(t, "5000.00", eval.DiscountAmount.StringFixed(2))
	assert.Equal(t, "20000.00", eval.FinalAmount.StringFixed(2))
}

func TestEvaluate_ReasonsBecomePromoInvalid(t *testing.T) {
	tests := []struct {
		name       string
		promo      func() *model.PromoCode
		userUsages int
		wantReason string
	}{
		{"unknown code", func() *model.PromoCode { return nil }, 0, "invalid_code"},
		{"expired", func() *model.PromoCode {
			p := storedPromo()
			p.ValidUntil = fixedNow.Add(-time.Minute)
			return p
		}, 0, "outside_validity_window"},
		{"user limit", func() *model.PromoCode {
			p := storedPromo()
			p.UserUsageLimit = intPtr(1)
			return p
		}, 1, "user_limit_reached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockPromoCodeRepository{
				findByCodeFunc: func(ctx context.Context, code string) (*model.PromoCode, error) {
					if p := tt.promo(); p != nil {
						return p, nil
					}
					return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, code)
				},
				countUserUsageFunc: func(ctx context.Context, code, userID string) (int, error) {
					return tt.userUsages, nil
				},
			}
			svc := newTestService(repo)

			_, err := svc.Evaluate(context.Background(), "MONSOON20", trek().ID, "user-1", decimal.NewFromInt(1000))
			require.Error(t, err)
			appErr := apperrors.AsAppError(err)
			assert.Equal(t, apperrors.CodePromoInvalid, appErr.Code)
			assert.Equal(t, tt.wantReason, appErr.Details["reason"])
		})
	}
}

func TestEvaluate_SkipsUsageCountWithoutUserLimit(t *testing.T) {
	repo := &mockPromoCodeRepository{
		findByCodeFunc: func(ctx context.Context, code string) (*model.PromoCode, error) {
			return storedPromo(), nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Evaluate(context.Background(), "MONSOON20", trek().ID, "user-1", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Zero(t, repo.countUserUsageCalled)
}

func TestEvaluate_UnknownEvent(t *testing.T) {
	svc := newTestService(&mockPromoCodeRepository{})
	_, err := svc.Evaluate(context.Background(), "MONSOON20", "507f1f77bcf86cd799439099", "user-1", decimal.NewFromInt(1000))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRecordUsage(t *testing.T) {
	eval := &Evaluation{
		Promo:          storedPromo(),
		CartAmount:     decimal.NewFromInt(25000),
		DiscountAmount: decimal.NewFromInt(5000),
		FinalAmount:    decimal.NewFromInt(20000),
	}

	t.Run("increments and writes the usage row", func(t *testing.T) {
		var inserted *model.PromoCodeUsage
		repo := &mockPromoCodeRepository{
			insertUsageFunc: func(ctx context.Context, u *model.PromoCodeUsage) error {
				inserted = u
				return nil
			},
		}
		require.NoError(t, newTestService(repo).RecordUsage(context.Background(), eval, "user-1", "TRVABC1234"))
		require.NotNil(t, inserted)
		assert.Equal(t, "TRVABC1234", inserted.BookingID)
		assert.Equal(t, "MONSOON20", inserted.Code)
		assert.Equal(t, 25000.0, inserted.OriginalAmount)
		assert.Equal(t, 5000.0, inserted.DiscountAmount)
		assert.Equal(t, 20000.0, inserted.FinalAmount)
	})

	t.Run("lost race on the counter", func(t *testing.T) {
		repo := &mockPromoCodeRepository{
			incrementUsageFunc: func(ctx context.Context, id string) error {
				return fmt.Errorf("%w: %s", promoerrors.ErrUsageLimitReached, id)
			},
			insertUsageFunc: func(ctx context.Context, u *model.PromoCodeUsage) error {
				t.Fatal("usage must not be written after a refused increment")
				return nil
			},
		}
		err := newTestService(repo).RecordUsage(context.Background(), eval, "user-1", "TRVABC1234")
		assert.Equal(t, "usage_limit_reached", apperrors.AsAppError(err).Details["reason"])
	})

	t.Run("user limit rechecked inside the transaction", func(t *testing.T) {
		limited := *eval
		promo := storedPromo()
		promo.UserUsageLimit = intPtr(1)
		limited.Promo = promo
		repo := &mockPromoCodeRepository{
			countUserUsageFunc: func(ctx context.Context, code, userID string) (int, error) { return 1, nil },
		}
		err := newTestService(repo).RecordUsage(context.Background(), &limited, "user-1", "TRVABC1234")
		assert.Equal(t, "user_limit_reached", apperrors.AsAppError(err).Details["reason"])
	})

	t.Run("duplicate booking", func(t *testing.T) {
		repo := &mockPromoCodeRepository{
			insertUsageFunc: func(ctx context.Context, u *model.PromoCodeUsage) error {
				return fmt.Errorf("%w: %s", promoerrors.ErrUsageExists, u.BookingID)
			},
		}
		err := newTestService(repo).RecordUsage(context.Background(), eval, "user-1", "TRVABC1234")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})
}

func TestReleaseUsage(t *testing.T) {
	t.Run("no usage is a no-op", func(t *testing.T) {
		repo := &mockPromoCodeRepository{
			decrementUsageFunc: func(ctx context.Context, id string) error {
				t.Fatal("counter must not move")
				return nil
			},
		}
		assert.NoError(t, newTestService(repo).ReleaseUsage(context.Background(), "TRVABC1234"))
	})

	t.Run("deletes the row and decrements", func(t *testing.T) {
		var deleted, decremented string
		repo := &mockPromoCodeRepository{
			findUsageFunc: func(ctx context.Context, bookingID string) (*model.PromoCodeUsage, error) {
				return &model.PromoCodeUsage{PromoCodeID: "65a1f0c2e4b0a1b2c3d4e5f6", Code: "MONSOON20", BookingID: bookingID}, nil
			},
			deleteUsageFunc: func(ctx context.Context, bookingID string) error {
				deleted = bookingID
				return nil
			},
			decrementUsageFunc: func(ctx context.Context, id string) error {
				decremented = id
				return nil
			},
		}
		require.NoError(t, newTestService(repo).ReleaseUsage(context.Background(), "TRVABC1234"))
		assert.Equal(t, "TRVABC1234", deleted)
		assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", decremented)
	})
}

func TestCreate_SanitizesAndRejectsBadPercentages(t *testing.T) {
	var saved *model.PromoCode
	svc := newTestService(&mockPromoCodeRepository{
		createFunc: func(ctx context.Context, p *model.PromoCode) error {
			saved = p
			return nil
		},
	})

	p := storedPromo()
	p.ID = ""
	p.Code = " monsoon20 "
	p.UsageCount = 7
	p.ApplicableCategories = []string{" Trekking", "trekking"}
	require.NoError(t, svc.Create(context.Background(), p))
	assert.Equal(t, "MONSOON20", saved.Code)
	assert.Zero(t, saved.UsageCount)
	assert.Equal(t, []string{"trekking"}, saved.ApplicableCategories)

	bad := storedPromo()
	bad.Value = 120
	err := svc.Create(context.Background(), bad)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	fields := apperrors.AsAppError(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "value")
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc := newTestService(&mockPromoCodeRepository{
		createFunc: func(ctx context.Context, p *model.PromoCode) error {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
		},
	})
	err := svc.Create(context.Background(), storedPromo())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestUpdate_KeepsCodeAndCounter(t *testing.T) {
	existing := storedPromo()
	existing.UsageCount = 4
	var saved *model.PromoCode
	svc := newTestService(&mockPromoCodeRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.PromoCode, error) { return existing, nil },
		updateFunc: func(ctx context.Context, id string, p *model.PromoCode) error {
			saved = p
			return nil
		},
	})

	value := 15.0
	updated, err := svc.Update(context.Background(), existing.ID, &model.PromoCodeUpdate{Value: &value, UsageLimit: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 15.0, saved.Value)
	assert.Equal(t, "MONSOON20", updated.Code)
	assert.Equal(t, 4, updated.UsageCount)

	_, err = svc.Update(context.Background(), existing.ID, &model.PromoCodeUpdate{UsageLimit: intPtr(2)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestDeactivate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{"not found", promoerrors.ErrNotFound, apperrors.CodeNotFound},
		{"bad id", promoerrors.ErrInvalidID, apperrors.CodeInvalidInput},
		{"storage", fmt.Errorf("connection reset"), apperrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockPromoCodeRepository{
				deactivateFunc: func(ctx context.Context, id string) error { return tt.repoErr },
			})
			assert.True(t, apperrors.HasCode(svc.Deactivate(context.Background(), "x"), tt.wantCode))
		})
	}
}
