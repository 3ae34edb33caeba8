package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	inventoryerrors "trekkr/internal/inventory/errors"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	"trekkr/pkg/model"
)

const (
	CollectionName = "Seat_ledgers"

	bookingsCollection = "Bookings"
)

type LedgerRepository interface {
	FindByID(ctx context.Context, id string) (*model.SeatLedger, error)
	// Ensure creates the bucket's ledger on first use, seeding reserved with
	// seed(), and refreshes capacity on every call.
	Ensure(ctx context.Context, l *model.SeatLedger, seed func(ctx context.Context) (int, error)) error
	// Reserve adds seats only while reserved+seats <= capacity. ok is false
	// when the ceiling refused the increment; the ledger is then returned as read.
	Reserve(ctx context.Context, id string, seats int) (ledger *model.SeatLedger, ok bool, err error)
	Release(ctx context.Context, id string, seats int) error
	// SetReserved overwrites reserved only while it still equals expected.
	// A concurrent reservation or release in between yields ErrLedgerChanged.
	SetReserved(ctx context.Context, id string, expected, reserved int) error
	CountReserved(ctx context.Context, eventID, month string, year int) (int, error)
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	bookings   *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		bookings:   db.Collection(bookingsCollection),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoLedgerRepository) FindByID(ctx context.Context, id string) (*model.SeatLedger, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var l model.SeatLedger
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", inventoryerrors.ErrLedgerNotFound, id)
		}
		return nil, fmt.Errorf("failed to find seat ledger: %w", err)
	}
	return &l, nil
}

func (r *mongoLedgerRepository) Ensure(ctx context.Context, l *model.SeatLedger, seed func(ctx context.Context) (int, error)) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	refresh := bson.M{"$set": bson.M{"capacity": l.Capacity, "updated_at": now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": l.ID}, refresh)
	if err != nil {
		return fmt.Errorf("failed to refresh seat ledger capacity: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	reserved, err := seed(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed seat ledger: %w", err)
	}

	upsert := bson.M{
		"$setOnInsert": bson.M{
			"event_id": l.EventID,
			"month":    l.Month,
			"year":     l.Year,
			"reserved": reserved,
		},
		"$set": bson.M{"capacity": l.Capacity, "updated_at": now()},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": l.ID}, upsert, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Another request created it first; only capacity needs refreshing.
		_, err = r.collection.UpdateOne(ctx, bson.M{"_id": l.ID}, refresh)
	}
	if err != nil {
		return fmt.Errorf("failed to create seat ledger: %w", err)
	}
	return nil
}

func (r *mongoLedgerRepository) Reserve(ctx context.Context, id string, seats int) (*model.SeatLedger, bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": id,
		"$expr": bson.M{
			"$lte": bson.A{bson.M{"$add": bson.A{"$reserved", seats}}, "$capacity"},
		},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": seats},
		"$set": bson.M{"updated_at": now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var l model.SeatLedger
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&l)
	if err == nil {
		return &l, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to reserve seats: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *mongoLedgerRepository) Release(ctx context.Context, id string, seats int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "reserved": bson.M{"$gte": seats}}
	update := bson.M{
		"$inc": bson.M{"reserved": -seats},
		"$set": bson.M{"updated_at": now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", inventoryerrors.ErrInsufficientReserved, id)
	}
	return nil
}

func (r *mongoLedgerRepository) SetReserved(ctx context.Context, id string, expected, reserved int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "reserved": expected}
	update := bson.M{"$set": bson.M{"reserved": reserved, "updated_at": now()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to overwrite seat ledger: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", inventoryerrors.ErrLedgerChanged, id)
}

func (r *mongoLedgerRepository) CountReserved(ctx context.Context, eventID, month string, year int) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"event_id":       eventID,
			"selected_month": month,
			"selected_year":  year,
			"status":         bson.M{"$in": bson.A{model.BookingPending, model.BookingConfirmed}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"seats": bson.M{"$sum": bson.M{"$size": "$participants"}},
		}}},
	}

	cursor, err := r.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count reserved seats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Seats int `bson:"seats"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode reserved seats: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Seats, nil
}
