package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trekkr/internal/migrations/mongo/validators"
	"trekkr/pkg/logger"
)

// WebhookEventRetention bounds how long a gateway delivery id is remembered.
const WebhookEventRetention = 30 * 24 * time.Hour

var (
	EventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "available_dates.year", Value: 1}, {Key: "available_dates.month", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "event_id", Value: 1},
			{Key: "selected_month", Value: 1},
			{Key: "selected_year", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "payment_info.order_id", Value: 1}}},
		{Keys: bson.D{{Key: "payment_info.order_ids", Value: 1}}},
		{Keys: bson.D{{Key: "payment_info.payment_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	SeatLedgersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}},
	}

	PromoCodesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "valid_until", Value: 1}}},
	}

	PromoCodeUsagesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "code", Value: 1}, {Key: "user_id", Value: 1}}},
	}

	WebhookEventsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(WebhookEventRetention.Seconds())),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections is the full schema the services expect.
var Collections = map[string]collectionDef{
	"Events":            {Indexes: EventsIndexes, Validator: validators.EventValidator},
	"Bookings":          {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
	"Seat_ledgers":      {Indexes: SeatLedgersIndexes, Validator: validators.SeatLedgerValidator},
	"Promo_codes":       {Indexes: PromoCodesIndexes, Validator: validators.PromoCodeValidator},
	"Promo_code_usages": {Indexes: PromoCodeUsagesIndexes, Validator: validators.PromoCodeUsageValidator},
	"Webhook_events":    {Indexes: WebhookEventsIndexes, Validator: validators.WebhookEventValidator},
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName, "collections", len(Collections))

	for name, def := range Collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", dbName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
