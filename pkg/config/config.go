package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"eventa/pkg/client"
	"eventa/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout   time.Duration
	IdempotencyTTL   time.Duration
	IdempotencyStore string
	MaxRequestSize   int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTSecret        string
	JWTTTL           time.Duration
	BcryptCost       int
	AllowAdminSignup bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AdmissionLocker   string
	AdmissionLockTTL  time.Duration
	AdmissionLockWait time.Duration

	KafkaEnabled            bool
	KafkaBookingsTopic      string
	KafkaNotificationsTopic string

	Notifier          string
	AMQPURL           string
	AMQPQueue         string
	NotifyTimeout     time.Duration
	NotifyConcurrency int

	BookingDeadlineDays  int
	MaxSeatsPerAdmission int
	SweepInterval        time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment, after merging an
// optional .env file, and exits the process when it is invalid.
func Load(serviceName string) *Config {
	loadEnvFile()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout:   getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:   getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		IdempotencyStore: strings.ToLower(getEnvStr(EnvIdempotencyStore, DefaultIdempotencyStore)),
		MaxRequestSize:   getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		JWTSecret:        getEnvStr(EnvJWTSecret, ""),
		JWTTTL:           getEnvDuration(EnvJWTTTL, DefaultJWTTTL),
		BcryptCost:       getEnvNum(EnvBcryptCost, DefaultBcryptCost),
		AllowAdminSignup: getEnvBool(EnvAllowAdminSignup, DefaultAllowAdminSignup),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		AdmissionLocker:   strings.ToLower(getEnvStr(EnvAdmissionLocker, DefaultAdmissionLocker)),
		AdmissionLockTTL:  getEnvDuration(EnvAdmissionLockTTL, DefaultAdmissionLockTTL),
		AdmissionLockWait: getEnvDuration(EnvAdmissionLockWait, DefaultAdmissionLockWait),

		KafkaEnabled:            getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBookingsTopic:      getEnvStr(EnvKafkaBookingsTopic, DefaultKafkaBookingsTopic),
		KafkaNotificationsTopic: getEnvStr(EnvKafkaNotificationsTopic, DefaultKafkaNotificationsTopic),

		Notifier:          strings.ToLower(getEnvStr(EnvNotifier, DefaultNotifier)),
		AMQPURL:           getEnvStr(EnvAMQPURL, DefaultAMQPURL),
		AMQPQueue:         getEnvStr(EnvAMQPQueue, DefaultAMQPQueue),
		NotifyTimeout:     getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),
		NotifyConcurrency: getEnvNum(EnvNotifyConcurrency, DefaultNotifyConcurrency),

		BookingDeadlineDays:  getEnvNum(EnvBookingDeadlineDays, DefaultBookingDeadlineDays),
		MaxSeatsPerAdmission: getEnvNum(EnvMaxSeatsPerAdmission, DefaultMaxSeatsPerAdmission),
		SweepInterval:        getEnvDuration(EnvSweepInterval, DefaultSweepInterval),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func loadEnvFile() {
	path := getEnvStr(EnvEnvFile, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read env file %s: %v\n", path, err)
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// UsesRedis reports whether any configured component needs the Redis client.
func (cfg *Config) UsesRedis() bool {
	return cfg.AdmissionLocker == LockerRedis || cfg.IdempotencyStore == IdempotencyRedis
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"JWTTTL", cfg.JWTTTL},
		{"AdmissionLockTTL", cfg.AdmissionLockTTL},
		{"AdmissionLockWait", cfg.AdmissionLockWait},
		{"NotifyTimeout", cfg.NotifyTimeout},
		{"SweepInterval", cfg.SweepInterval},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("BcryptCost must be between 4 and 31, got: %d", cfg.BcryptCost))
	}

	switch cfg.AdmissionLocker {
	case LockerMemory, LockerMongo:
	case LockerRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when AdmissionLocker is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("AdmissionLocker must be one of [memory, redis, mongo], got: %s", cfg.AdmissionLocker))
	}

	switch cfg.IdempotencyStore {
	case IdempotencyMemory:
	case IdempotencyRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when IdempotencyStore is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("IdempotencyStore must be one of [memory, redis], got: %s", cfg.IdempotencyStore))
	}

	switch cfg.Notifier {
	case NotifierLog:
	case NotifierKafka:
		if !cfg.KafkaEnabled {
			errors = append(errors, "Notifier kafka requires KafkaEnabled")
		}
		if cfg.KafkaNotificationsTopic == "" {
			errors = append(errors, "KafkaNotificationsTopic cannot be empty")
		}
	case NotifierAMQP:
		if cfg.AMQPURL == "" || cfg.AMQPQueue == "" {
			errors = append(errors, "AMQPURL and AMQPQueue are required when Notifier is amqp")
		}
	default:
		errors = append(errors, fmt.Sprintf("Notifier must be one of [log, kafka, amqp], got: %s", cfg.Notifier))
	}

	if cfg.KafkaEnabled && cfg.KafkaBookingsTopic == "" {
		errors = append(errors, "KafkaBookingsTopic cannot be empty when Kafka is enabled")
	}

	if cfg.NotifyConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyConcurrency must be positive, got: %d", cfg.NotifyConcurrency))
	}
	if cfg.BookingDeadlineDays < 0 {
		errors = append(errors, fmt.Sprintf("BookingDeadlineDays cannot be negative, got: %d", cfg.BookingDeadlineDays))
	}
	if cfg.MaxSeatsPerAdmission <= 0 {
		errors = append(errors, fmt.Sprintf("MaxSeatsPerAdmission must be positive, got: %d", cfg.MaxSeatsPerAdmission))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"idempotency_store", cfg.IdempotencyStore,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"jwt_secret_set", cfg.JWTSecret != "",
		"jwt_ttl", cfg.JWTTTL,
		"bcrypt_cost", cfg.BcryptCost,
		"allow_admin_signup", cfg.AllowAdminSignup,
		"redis_addr", cfg.RedisAddr,
		"admission_locker", cfg.AdmissionLocker,
		"admission_lock_ttl", cfg.AdmissionLockTTL,
		"admission_lock_wait", cfg.AdmissionLockWait,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_bookings_topic", cfg.KafkaBookingsTopic,
		"kafka_notifications_topic", cfg.KafkaNotificationsTopic,
		"notifier", cfg.Notifier,
		"amqp_queue", cfg.AMQPQueue,
		"notify_timeout", cfg.NotifyTimeout,
		"notify_concurrency", cfg.NotifyConcurrency,
		"booking_deadline_days", cfg.BookingDeadlineDays,
		"max_seats_per_admission", cfg.MaxSeatsPerAdmission,
		"sweep_interval", cfg.SweepInterval,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

// DeadlineCutoff converts a deadline in whole days into the creation instant
// before which a pending booking counts as stale.
func DeadlineCutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
