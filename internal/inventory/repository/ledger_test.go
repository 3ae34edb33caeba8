package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	inventoryerrors "trekkr/internal/inventory/errors"
	"trekkr/pkg/client"
	"trekkr/pkg/config"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

func mongoConfig(t *testing.T) *config.Config {
	t.Helper()
	uri := os.Getenv("TREKKR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TREKKR_TEST_MONGO_URI not set")
	}

	log := logger.Discard()
	c := client.NewClient()
	c.SetMongo(log, uri, 10*time.Second)

	cfg := &config.Config{
		MongoDatabaseName: fmt.Sprintf("trekkr_inventory_test_%d", time.Now().UnixNano()),
		ReadTimeout:       5 * time.Second,
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
	return cfg
}

func TestLedgerRepository_ReserveNeverExceedsCapacity(t *testing.T) {
	cfg := mongoConfig(t)
	repo := NewMongoLedgerRepository(cfg)
	ctx := context.Background()

	ledger := &model.SeatLedger{ID: model.SeatLedgerID("evt1", "June", 2025), EventID: "evt1", Month: "June", Year: 2025, Capacity: 12}
	require.NoError(t, repo.Ensure(ctx, ledger, func(context.Context) (int, error) { return 2, nil }))

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reserved, err := repo.Reserve(ctx, ledger.ID, 1)
			assert.NoError(t, err)
			if reserved {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	l, err := repo.FindByID(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, l.Reserved)

	require.NoError(t, repo.Release(ctx, ledger.ID, 5))
	err = repo.Release(ctx, ledger.ID, 50)
	assert.ErrorIs(t, err, inventoryerrors.ErrInsufficientReserved)

	ledger.Capacity = 8
	require.NoError(t, repo.Ensure(ctx, ledger, func(context.Context) (int, error) {
		t.Fatal("seed must only run on creation")
		return 0, nil
	}))
	l, err = repo.FindByID(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, l.Capacity)
	assert.Equal(t, 7, l.Reserved)
}

func TestLedgerRepository_CountReserved(t *testing.T) {
	cfg := mongoConfig(t)
	repo := NewMongoLedgerRepository(cfg)
	ctx := context.Background()

	participants := func(n int) bson.A {
		out := bson.A{}
		for i := 0; i < n; i++ {
			out = append(out, bson.M{"name": fmt.Sprintf("p%d", i)})
		}
		return out
	}
	bookings := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(bookingsCollection)
	_, err := bookings.InsertMany(ctx, []any{
		bson.M{"event_id": "evt1", "selected_month": "June", "selected_year": 2025, "status": "PENDING", "participants": participants(2)},
		bson.M{"event_id": "evt1", "selected_month": "June", "selected_year": 2025, "status": "CONFIRMED", "participants": participants(3)},
		bson.M{"event_id": "evt1", "selected_month": "June", "selected_year": 2025, "status": "CANCELLED", "participants": participants(4)},
		bson.M{"event_id": "evt1", "selected_month": "July", "selected_year": 2025, "status": "PENDING", "participants": participants(5)},
	})
	require.NoError(t, err)

	got, err := repo.CountReserved(ctx, "evt1", "June", 2025)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	err = repo.SetReserved(ctx, "missing", 0, 1)
	assert.ErrorIs(t, err, inventoryerrors.ErrLedgerNotFound)
}

func TestLedgerRepository_SetReservedIsConditional(t *testing.T) {
	cfg := mongoConfig(t)
	repo := NewMongoLedgerRepository(cfg)
	ctx := context.Background()

	ledger := &model.SeatLedger{ID: model.SeatLedgerID("evt1", "June", 2025), EventID: "evt1", Month: "June", Year: 2025, Capacity: 10}
	require.NoError(t, repo.Ensure(ctx, ledger, func(context.Context) (int, error) { return 6, nil }))

	// The counter moved from 6 to 10 after the caller read it.
	_, ok, err := repo.Reserve(ctx, ledger.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)

	err = repo.SetReserved(ctx, ledger.ID, 6, 6)
	assert.ErrorIs(t, err, inventoryerrors.ErrLedgerChanged)

	require.NoError(t, repo.SetReserved(ctx, ledger.ID, 10, 9))
	l, err := repo.FindByID(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, l.Reserved)
}
