package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	paymentserrors "trekkr/internal/payments/errors"
	"trekkr/pkg/config"
	mongotx "trekkr/pkg/db/mongo"
	"trekkr/pkg/model"
)

const CollectionName = "Webhook_events"

// WebhookEventRepository remembers which gateway deliveries were already
// handled. Rows expire through a TTL index on received_at.
type WebhookEventRepository interface {
	// Claim records the delivery. It fails with ErrDuplicateWebhookEvent when
	// the event id was seen before.
	Claim(ctx context.Context, evt *model.WebhookEvent) error
	// Release forgets a claim so a redelivery of the event is processed.
	Release(ctx context.Context, eventID string) error
}

type mongoWebhookEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWebhookEventRepository(cfg *config.Config) WebhookEventRepository {
	return &mongoWebhookEventRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoWebhookEventRepository) Claim(ctx context.Context, evt *model.WebhookEvent) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, evt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", paymentserrors.ErrDuplicateWebhookEvent, evt.ID)
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

func (r *mongoWebhookEventRepository) Release(ctx context.Context, eventID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": eventID}); err != nil {
		return fmt.Errorf("failed to release webhook event: %w", err)
	}
	return nil
}
