package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentserrors "trekkr/internal/payments/errors"
	"trekkr/pkg/client"
	"trekkr/pkg/config"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

func TestWebhookEventRepository_ClaimOnce(t *testing.T) {
	uri := os.Getenv("TREKKR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TREKKR_TEST_MONGO_URI not set")
	}

	log := logger.Discard()
	c := client.NewClient()
	c.SetMongo(log, uri, 10*time.Second)
	cfg := &config.Config{
		MongoDatabaseName: fmt.Sprintf("trekkr_payments_test_%d", time.Now().UnixNano()),
		WriteTimeout:      5 * time.Second,
		Log:               log,
		Client:            c,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Mongo.Database(cfg.MongoDatabaseName).Drop(ctx)
		c.GracefulShutdown(ctx, log)
	})

	repo := NewMongoWebhookEventRepository(cfg)
	evt := &model.WebhookEvent{ID: "evt_Q1", Type: "payment.captured", OrderID: "order_1", ReceivedAt: time.Now().UTC()}

	require.NoError(t, repo.Claim(context.Background(), evt))
	err := repo.Claim(context.Background(), evt)
	assert.ErrorIs(t, err, paymentserrors.ErrDuplicateWebhookEvent)

	require.NoError(t, repo.Release(context.Background(), evt.ID))
	assert.NoError(t, repo.Claim(context.Background(), evt), "released event can be claimed again")
	assert.NoError(t, repo.Release(context.Background(), "evt_unknown"))
}
