package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"trekkr/internal/bookingevents"
	inventoryrepo "trekkr/internal/inventory/repository"
	inventoryservice "trekkr/internal/inventory/service"
	"trekkr/pkg/config"
	"trekkr/pkg/kafka"
	kafka_config "trekkr/pkg/kafka/config"
	kafka_middleware "trekkr/pkg/kafka/middleware"
)

const ServiceName = "ledger-auditor"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	inventory := inventoryservice.NewInventoryService(inventoryrepo.NewMongoLedgerRepository(cfg), cfg)
	auditor := bookingevents.NewAuditor(inventory, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.LedgerAuditorGroup,
		cfg.BookingEventsDLQTopic,
		auditor.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	consumer.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Ledger auditor started",
		"topic", cfg.BookingEventsTopic,
		"group", cfg.LedgerAuditorGroup,
		"dlq_topic", cfg.BookingEventsDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	cfg.Log.Info("Shutting down ledger auditor", "metrics", metrics.Snapshot())
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	cfg.Client.GracefulShutdown(shutdownCtx, cfg.Log)
}
