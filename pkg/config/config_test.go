package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:                DefaultMongoURI,
		MongoDatabaseName:       DefaultMongoDatabaseName,
		MongoConnTimeout:        DefaultMongoConnTimeout,
		Port:                    DefaultPort,
		RateLimitRequests:       DefaultRateLimitRequests,
		RateLimitWindow:         DefaultRateLimitWindow,
		RequestTimeout:          DefaultRequestTimeout,
		IdempotencyTTL:          DefaultIdempotencyTTL,
		IdempotencyStore:        DefaultIdempotencyStore,
		MaxRequestSize:          DefaultMaxRequestSize,
		ReadTimeout:             DefaultReadTimeout,
		WriteTimeout:            DefaultWriteTimeout,
		IdleTimeout:             DefaultIdleTimeout,
		ShutdownTimeout:         DefaultShutdownTimeout,
		JWTSecret:               "0123456789abcdef0123",
		JWTTTL:                  DefaultJWTTTL,
		BcryptCost:              DefaultBcryptCost,
		RedisAddr:               DefaultRedisAddr,
		AdmissionLocker:         DefaultAdmissionLocker,
		AdmissionLockTTL:        DefaultAdmissionLockTTL,
		AdmissionLockWait:       DefaultAdmissionLockWait,
		KafkaBookingsTopic:      DefaultKafkaBookingsTopic,
		KafkaNotificationsTopic: DefaultKafkaNotificationsTopic,
		Notifier:                DefaultNotifier,
		AMQPURL:                 DefaultAMQPURL,
		AMQPQueue:               DefaultAMQPQueue,
		NotifyTimeout:           DefaultNotifyTimeout,
		NotifyConcurrency:       DefaultNotifyConcurrency,
		BookingDeadlineDays:     DefaultBookingDeadlineDays,
		MaxSeatsPerAdmission:    DefaultMaxSeatsPerAdmission,
		SweepInterval:           DefaultSweepInterval,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "invalid port",
			mutate:  func(cfg *Config) { cfg.Port = "99999" },
			wantMsg: "Port must be between 1 and 65535",
		},
		{
			name:    "bad mongo scheme",
			mutate:  func(cfg *Config) { cfg.MongoURI = "postgres://localhost" },
			wantMsg: "MongoURI must start with",
		},
		{
			name:    "short jwt secret",
			mutate:  func(cfg *Config) { cfg.JWTSecret = "short" },
			wantMsg: "JWTSecret must be at least 16 characters",
		},
		{
			name:    "unknown locker",
			mutate:  func(cfg *Config) { cfg.AdmissionLocker = "etcd" },
			wantMsg: "AdmissionLocker must be one of",
		},
		{
			name:    "kafka notifier without kafka",
			mutate:  func(cfg *Config) { cfg.Notifier = NotifierKafka },
			wantMsg: "Notifier kafka requires KafkaEnabled",
		},
		{
			name:    "negative deadline",
			mutate:  func(cfg *Config) { cfg.BookingDeadlineDays = -1 },
			wantMsg: "BookingDeadlineDays cannot be negative",
		},
		{
			name:    "zero seats per admission",
			mutate:  func(cfg *Config) { cfg.MaxSeatsPerAdmission = 0 },
			wantMsg: "MaxSeatsPerAdmission must be positive",
		},
		{
			name:    "zero notify timeout",
			mutate:  func(cfg *Config) { cfg.NotifyTimeout = 0 },
			wantMsg: "NotifyTimeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.MongoDatabaseName = ""
	cfg.NotifyConcurrency = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"  1. ", "  2. ", "  3. "} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected numbered entry %q in: %v", want, err)
		}
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017/eventa")
	if strings.Contains(got, "secret") {
		t.Errorf("credentials were not redacted: %s", got)
	}
	if got != "mongodb://***:***@db:27017/eventa" {
		t.Errorf("unexpected redaction: %s", got)
	}
}

func TestDeadlineCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got := DeadlineCutoff(now, 2)
	want := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DeadlineCutoff() = %s, want %s", got, want)
	}
	if !DeadlineCutoff(now, 0).Equal(now) {
		t.Error("zero days should cut off at now")
	}
}

func TestNormalizePagination(t *testing.T) {
	if NormalizePaginationLimit(0) != 10 {
		t.Error("zero limit should default to 10")
	}
	if NormalizePaginationLimit(5000) != DefaultPaginationLimit {
		t.Error("limit should be capped")
	}
	if NormalizeOffset(-3) != 0 {
		t.Error("negative offset should clamp to 0")
	}
}
