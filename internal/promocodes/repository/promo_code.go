package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	promoerrors "trekkr/internal/promocodes/errors"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	"trekkr/pkg/model"
)

const (
	CollectionName      = "Promo_codes"
	UsageCollectionName = "Promo_code_usages"
)

type PromoCodeRepository interface {
	Create(ctx context.Context, p *model.PromoCode) error
	FindByID(ctx context.Context, id string) (*model.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindAll(ctx context.Context, filter model.PromoCodeFilter, limit int, offset int64) ([]*model.PromoCode, error)
	Count(ctx context.Context, filter model.PromoCodeFilter) (int64, error)
	Update(ctx context.Context, id string, p *model.PromoCode) error
	Deactivate(ctx context.Context, id string) error

	// IncrementUsage bumps usage_count unless usage_limit is already reached.
	IncrementUsage(ctx context.Context, id string) error
	DecrementUsage(ctx context.Context, id string) error
	InsertUsage(ctx context.Context, u *model.PromoCodeUsage) error
	FindUsageByBooking(ctx context.Context, bookingID string) (*model.PromoCodeUsage, error)
	DeleteUsageByBooking(ctx context.Context, bookingID string) error
	CountUserUsage(ctx context.Context, code, userID string) (int, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoPromoCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	usages     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoPromoCodeRepository(cfg *config.Config) PromoCodeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromoCodeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		usages:     db.Collection(UsageCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", promoerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoPromoCodeRepository) Create(ctx context.Context, p *model.PromoCode) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
		}
		return fmt.Errorf("failed to create promo code: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPromoCodeRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.PromoCode
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	return &p, nil
}

func (r *mongoPromoCodeRepository) FindByID(ctx context.Context, id string) (*model.PromoCode, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *mongoPromoCodeRepository) FindByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return r.findOne(ctx, bson.M{"code": code}, code)
}

func filterDocument(filter model.PromoCodeFilter) bson.M {
	doc := bson.M{}
	if filter.ActiveOnly {
		doc["is_active"] = true
	}
	return doc
}

func (r *mongoPromoCodeRepository) FindAll(ctx context.Context, filter model.PromoCodeFilter, limit int, offset int64) ([]*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	var promos []*model.PromoCode
	if err = cursor.All(ctx, &promos); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return promos, nil
}

func (r *mongoPromoCodeRepository) Count(ctx context.Context, filter model.PromoCodeFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count promo codes: %w", err)
	}
	return count, nil
}

// Update rewrites the editable fields. code and usage_count are never touched here.
func (r *mongoPromoCodeRepository) Update(ctx context.Context, id string, p *model.PromoCode) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"description":           p.Description,
		"value":                 p.Value,
		"valid_from":            p.ValidFrom,
		"valid_until":           p.ValidUntil,
		"applicable_events":     p.ApplicableEvents,
		"applicable_categories": p.ApplicableCategories,
		"excluded_events":       p.ExcludedEvents,
		"is_public":             p.IsPublic,
		"target_users":          p.TargetUsers,
		"is_active":             p.IsActive,
		"updated_at":            now(),
	}
	unset := bson.M{}
	optional := map[string]any{
		"min_order_amount":    p.MinOrderAmount,
		"max_discount_amount": p.MaxDiscountAmount,
		"usage_limit":         p.UsageLimit,
		"user_usage_limit":    p.UserUsageLimit,
	}
	for field, value := range optional {
		switch v := value.(type) {
		case *float64:
			if v != nil {
				set[field] = *v
				continue
			}
		case *int:
			if v != nil {
				set[field] = *v
				continue
			}
		}
		unset[field] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return r.updateOne(ctx, id, bson.M{"_id": oid}, update)
}

func (r *mongoPromoCodeRepository) Deactivate(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"is_active": false, "updated_at": now()}}
	return r.updateOne(ctx, id, bson.M{"_id": oid}, update)
}

func (r *mongoPromoCodeRepository) updateOne(ctx context.Context, id string, filter, update bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoPromoCodeRepository) IncrementUsage(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": oid,
		"$or": bson.A{
			bson.M{"usage_limit": bson.M{"$exists": false}},
			bson.M{"usage_limit": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usage_count", "$usage_limit"}}},
		},
	}
	update := bson.M{"$inc": bson.M{"usage_count": 1}, "$set": bson.M{"updated_at": now()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment promo code usage: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrUsageLimitReached, id)
	}
	return nil
}

func (r *mongoPromoCodeRepository) DecrementUsage(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "usage_count": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"usage_count": -1}, "$set": bson.M{"updated_at": now()}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to decrement promo code usage: %w", err)
	}
	return nil
}

func (r *mongoPromoCodeRepository) InsertUsage(ctx context.Context, u *model.PromoCodeUsage) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if u.UsedAt.IsZero() {
		u.UsedAt = now()
	}
	result, err := r.usages.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrUsageExists, u.BookingID)
		}
		return fmt.Errorf("failed to record promo code usage: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPromoCodeRepository) FindUsageByBooking(ctx context.Context, bookingID string) (*model.PromoCodeUsage, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var u model.PromoCodeUsage
	if err := r.usages.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrUsageNotFound, bookingID)
		}
		return nil, fmt.Errorf("failed to find promo code usage: %w", err)
	}
	return &u, nil
}

func (r *mongoPromoCodeRepository) DeleteUsageByBooking(ctx context.Context, bookingID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.usages.DeleteOne(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return fmt.Errorf("failed to delete promo code usage: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrUsageNotFound, bookingID)
	}
	return nil
}

func (r *mongoPromoCodeRepository) CountUserUsage(ctx context.Context, code, userID string) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.usages.CountDocuments(ctx, bson.M{"code": code, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count promo code usage: %w", err)
	}
	return int(count), nil
}

func (r *mongoPromoCodeRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
