package main

import (
	"context"

	"trekkr/internal/bookingevents"
	bookinghandler "trekkr/internal/bookings/handler"
	bookingrepo "trekkr/internal/bookings/repository"
	bookingservice "trekkr/internal/bookings/service"
	bookingvalidator "trekkr/internal/bookings/validator"
	eventhandler "trekkr/internal/events/handler"
	eventrepo "trekkr/internal/events/repository"
	eventservice "trekkr/internal/events/service"
	eventvalidator "trekkr/internal/events/validator"
	inventoryrepo "trekkr/internal/inventory/repository"
	inventoryservice "trekkr/internal/inventory/service"
	"trekkr/internal/payments/gateway"
	paymenthandler "trekkr/internal/payments/handler"
	paymentrepo "trekkr/internal/payments/repository"
	paymentservice "trekkr/internal/payments/service"
	promohandler "trekkr/internal/promocodes/handler"
	promorepo "trekkr/internal/promocodes/repository"
	promoservice "trekkr/internal/promocodes/service"
	promovalidator "trekkr/internal/promocodes/validator"
	"trekkr/internal/sweeper"
	"trekkr/pkg/app"
	"trekkr/pkg/auth"
	"trekkr/pkg/config"
	"trekkr/pkg/kafka"
	kafka_config "trekkr/pkg/kafka/config"
	kafka_middleware "trekkr/pkg/kafka/middleware"
)

const ServiceName = "trekkr-api"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.RequireSecrets(); err != nil {
		cfg.Log.Fatal("Missing secrets", "error", err)
	}
	cfg.SetMongo()
	cfg.SetRedis()

	serverApp := app.NewApplication(cfg)
	publisher := initPublisher(cfg, serverApp)
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.Log)

	inventory := inventoryservice.NewInventoryService(inventoryrepo.NewMongoLedgerRepository(cfg), cfg)
	events := eventservice.NewEventService(
		eventrepo.NewMongoEventRepository(cfg),
		eventvalidator.NewEventValidator(cfg.Log),
		inventory,
		cfg,
	)
	promos := promoservice.NewPromoCodeService(
		promorepo.NewMongoPromoCodeRepository(cfg),
		promovalidator.NewPromoCodeValidator(cfg.Log),
		events,
		cfg,
	)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	bookings := bookingservice.NewBookingService(
		bookingRepo,
		bookingvalidator.NewBookingValidator(cfg.Log),
		events,
		inventory,
		promos,
		publisher,
		cfg,
	)
	payments := paymentservice.NewPaymentService(
		bookingRepo,
		paymentrepo.NewMongoWebhookEventRepository(cfg),
		gateway.NewRazorpayGateway(cfg),
		publisher,
		cfg,
	)

	sweep := sweeper.New(bookings, cfg)
	if err := sweep.Start(); err != nil {
		cfg.Log.Fatal("Failed to start booking sweeper", "error", err)
	}
	serverApp.OnShutdown(sweep.Stop)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	serverApp.SetApp(
		eventhandler.NewEventHandler(events, authenticator, cfg.Log),
		promohandler.NewPromoCodeHandler(promos, authenticator, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, authenticator, cfg.Log),
		paymenthandler.NewPaymentHandler(payments, authenticator, cfg.Log),
	)
	serverApp.Run()
}

// initPublisher returns the Kafka publisher when Kafka is enabled, or a
// publisher that only logs.
func initPublisher(cfg *config.Config, serverApp *app.Application) bookingevents.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events are logged only")
		return bookingevents.NewLogPublisher(cfg.Log)
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	producer.Use(metrics.ProducerMiddleware())
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(func(context.Context) {
		cfg.Log.Info("Booking event publishing summary", "metrics", metrics.Snapshot())
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	return bookingevents.NewKafkaPublisher(producer)
}
