package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "trekkr/internal/bookings/errors"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	"trekkr/pkg/model"
)

const (
	CollectionName = "Bookings"
)

// StatusChange describes one conditional status transition. The update only
// applies while the booking is in one of the expected statuses and its
// payment status passes PaymentIn / PaymentNot when those are set.
type StatusChange struct {
	From       []model.BookingStatus
	To         model.BookingStatus
	PaymentIn  []model.PaymentStatus
	PaymentNot model.PaymentStatus
	// SetPayment overwrites payment_info.payment_status when non-empty.
	SetPayment model.PaymentStatus
	Actor      string
	Reason     string
	At         time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	FindByBookingID(ctx context.Context, bookingID string) (*model.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)

	// Transition applies change and returns the booking as it was before.
	Transition(ctx context.Context, bookingID string, change StatusChange) (*model.Booking, error)

	SetOrder(ctx context.Context, bookingID, orderID string, amount float64, currency string) error
	// MarkPaid confirms a pending, unpaid booking. ok is false when the
	// booking was not in that state.
	MarkPaid(ctx context.Context, bookingID, paymentID string, paidAt time.Time) (ok bool, err error)
	MarkFailed(ctx context.Context, bookingID, paymentID, reason string) (ok bool, err error)
	FlagReconciliation(ctx context.Context, bookingID, paymentID string) error
	AttachDispute(ctx context.Context, paymentID string, dispute *model.Dispute) (ok bool, err error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	if _, err := r.collection.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateBookingID, b.BookingID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &b, nil
}

func (r *mongoBookingRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"booking_id": bookingID}, bookingID)
}

// FindByOrderID matches the current order and any order it superseded.
func (r *mongoBookingRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"payment_info.order_id": orderID},
		bson.M{"payment_info.order_ids": orderID},
	}}
	return r.findOne(ctx, filter, orderID)
}

func filterDocument(filter model.BookingFilter) bson.M {
	doc := bson.M{}
	if filter.UserID != "" {
		doc["user_id"] = filter.UserID
	}
	if filter.EventID != "" {
		doc["event_id"] = filter.EventID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	return doc
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, filterDocument(filter), opts)
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	filter := bson.M{
		"status":                      model.BookingPending,
		"payment_info.payment_status": bson.M{"$ne": model.PaymentSuccess},
		"created_at":                  bson.M{"$lt": createdBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoBookingRepository) Transition(ctx context.Context, bookingID string, change StatusChange) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"status":     bson.M{"$in": change.From},
	}
	switch {
	case len(change.PaymentIn) > 0:
		filter["payment_info.payment_status"] = bson.M{"$in": change.PaymentIn}
	case change.PaymentNot != "":
		filter["payment_info.payment_status"] = bson.M{"$ne": change.PaymentNot}
	}

	at := change.At.UTC().Truncate(time.Millisecond)
	set := bson.M{"status": change.To, "updated_at": at}
	switch change.To {
	case model.BookingCancelled:
		set["cancelled_at"] = at
		set["cancelled_by"] = change.Actor
		set["cancellation_reason"] = change.Reason
	case model.BookingCompleted:
		set["completed_at"] = at
	case model.BookingRefunded:
		set["refunded_at"] = at
	}
	if change.SetPayment != "" {
		set["payment_info.payment_status"] = change.SetPayment
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrStatusChanged, bookingID)
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &before, nil
}

func (r *mongoBookingRepository) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update booking: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *mongoBookingRepository) SetOrder(ctx context.Context, bookingID, orderID string, amount float64, currency string) error {
	filter := bson.M{
		"booking_id":                  bookingID,
		"status":                      model.BookingPending,
		"payment_info.payment_status": bson.M{"$ne": model.PaymentSuccess},
	}
	update := bson.M{
		"$set": bson.M{
			"payment_info.order_id": orderID,
			"payment_info.amount":   amount,
			"payment_info.currency": currency,
			"updated_at":            now(),
		},
		"$addToSet": bson.M{"payment_info.order_ids": orderID},
	}
	ok, err := r.updateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrStatusChanged, bookingID)
	}
	return nil
}

func (r *mongoBookingRepository) MarkPaid(ctx context.Context, bookingID, paymentID string, paidAt time.Time) (bool, error) {
	filter := bson.M{
		"booking_id":                  bookingID,
		"status":                      model.BookingPending,
		"payment_info.payment_status": bson.M{"$ne": model.PaymentSuccess},
	}
	update := bson.M{
		"$set": bson.M{
			"status":                      model.BookingConfirmed,
			"payment_info.payment_status": model.PaymentSuccess,
			"payment_info.payment_id":     paymentID,
			"payment_info.paid_at":        paidAt.UTC().Truncate(time.Millisecond),
			"updated_at":                  now(),
		},
		"$unset": bson.M{"payment_info.failure_reason": ""},
	}
	return r.updateOne(ctx, filter, update)
}

func (r *mongoBookingRepository) MarkFailed(ctx context.Context, bookingID, paymentID, reason string) (bool, error) {
	filter := bson.M{
		"booking_id":                  bookingID,
		"status":                      model.BookingPending,
		"payment_info.payment_status": bson.M{"$ne": model.PaymentSuccess},
	}
	set := bson.M{
		"payment_info.payment_status": model.PaymentFailed,
		"payment_info.failure_reason": reason,
		"updated_at":                  now(),
	}
	if paymentID != "" {
		set["payment_info.payment_id"] = paymentID
	}
	return r.updateOne(ctx, filter, bson.M{"$set": set})
}

func (r *mongoBookingRepository) FlagReconciliation(ctx context.Context, bookingID, paymentID string) error {
	set := bson.M{
		"payment_info.reconciliation_required": true,
		"updated_at":                           now(),
	}
	if paymentID != "" {
		set["payment_info.payment_id"] = paymentID
	}
	ok, err := r.updateOne(ctx, bson.M{"booking_id": bookingID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, bookingID)
	}
	return nil
}

func (r *mongoBookingRepository) AttachDispute(ctx context.Context, paymentID string, dispute *model.Dispute) (bool, error) {
	update := bson.M{"$set": bson.M{
		"payment_info.dispute": dispute,
		"updated_at":           now(),
	}}
	return r.updateOne(ctx, bson.M{"payment_info.payment_id": paymentID}, update)
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
