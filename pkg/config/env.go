package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL   = "IDEMPOTENCY_TTL"
	EnvIdempotencyStore = "IDEMPOTENCY_STORE"
	EnvMaxRequestSize   = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvJWTSecret        = "JWT_SECRET"
	EnvJWTTTL           = "JWT_TTL"
	EnvBcryptCost       = "BCRYPT_COST"
	EnvAllowAdminSignup = "ALLOW_ADMIN_SIGNUP"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvAdmissionLocker   = "ADMISSION_LOCKER"
	EnvAdmissionLockTTL  = "ADMISSION_LOCK_TTL"
	EnvAdmissionLockWait = "ADMISSION_LOCK_WAIT"

	EnvKafkaEnabled            = "KAFKA_ENABLED"
	EnvKafkaBookingsTopic      = "KAFKA_BOOKINGS_TOPIC"
	EnvKafkaNotificationsTopic = "KAFKA_NOTIFICATIONS_TOPIC"

	EnvNotifier          = "NOTIFIER"
	EnvAMQPURL           = "AMQP_URL"
	EnvAMQPQueue         = "AMQP_QUEUE"
	EnvNotifyTimeout     = "NOTIFY_TIMEOUT"
	EnvNotifyConcurrency = "NOTIFY_CONCURRENCY"

	EnvBookingDeadlineDays  = "BOOKING_DEADLINE_DAYS"
	EnvMaxSeatsPerAdmission = "MAX_SEATS_PER_ADMISSION"
	EnvSweepInterval        = "SWEEP_INTERVAL"
)
