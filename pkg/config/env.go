package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvJWTSecret = "JWT_SECRET"

	EnvRazorpayKeyID         = "RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "RAZORPAY_WEBHOOK_SECRET"
	EnvRazorpayBaseURL       = "RAZORPAY_BASE_URL"
	EnvPaymentCurrency       = "PAYMENT_CURRENCY"
	EnvGatewayTimeout        = "GATEWAY_TIMEOUT"
	EnvGatewayBreakerTrips   = "GATEWAY_BREAKER_THRESHOLD"

	EnvPendingBookingTTL = "PENDING_BOOKING_TTL"
	EnvSweeperSchedule   = "SWEEPER_SCHEDULE"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvLedgerAuditorGroup    = "LEDGER_AUDITOR_GROUP"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
