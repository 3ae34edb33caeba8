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

	eventserrors "trekkr/internal/events/errors"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	"trekkr/pkg/model"
)

const (
	CollectionName = "Events"
)

type mongoEventRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindAll(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, error)
	Count(ctx context.Context, filter model.EventFilter) (int64, error)
	Update(ctx context.Context, id string, e *model.Event) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoEventRepository) Create(ctx context.Context, e *model.Event) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	e.CreatedAt = now
	e.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func (r *mongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}

	var e model.Event
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &e, nil
}

func filterDocument(filter model.EventFilter) bson.M {
	doc := bson.M{}
	if filter.Category != "" {
		doc["category"] = filter.Category
	}
	if filter.ActiveOnly {
		doc["is_active"] = true
	}
	return doc
}

func (r *mongoEventRepository) FindAll(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *mongoEventRepository) Count(ctx context.Context, filter model.EventFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *mongoEventRepository) Update(ctx context.Context, id string, e *model.Event) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"title":            e.Title,
			"description":      e.Description,
			"category":         e.Category,
			"location":         e.Location,
			"price":            e.Price,
			"max_participants": e.MaxParticipants,
			"available_dates":  e.AvailableDates,
			"image_urls":       e.ImageURLs,
			"time_zone":        e.TimeZone,
			"is_active":        e.IsActive,
			"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoEventRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
