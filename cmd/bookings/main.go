package main

import (
	"context"

	"eventa/internal/bookings/handler"
	"eventa/internal/bookings/ledger"
	"eventa/internal/bookings/publisher"
	bookingrepo "eventa/internal/bookings/repository"
	bookingservice "eventa/internal/bookings/service"
	bookingvalidator "eventa/internal/bookings/validator"
	eventhandler "eventa/internal/events/handler"
	eventrepo "eventa/internal/events/repository"
	eventservice "eventa/internal/events/service"
	eventvalidator "eventa/internal/events/validator"
	userhandler "eventa/internal/users/handler"
	userrepo "eventa/internal/users/repository"
	userservice "eventa/internal/users/service"
	uservalidator "eventa/internal/users/validator"
	"eventa/pkg/app"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	"eventa/pkg/contracts"
	"eventa/pkg/kafka"
	kafka_config "eventa/pkg/kafka/config"
	kafka_middleware "eventa/pkg/kafka/middleware"
	"eventa/pkg/middleware"
	"eventa/pkg/notify"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting eVENTA bookings service")
	cfg.SetMongo()
	if cfg.UsesRedis() {
		cfg.SetRedis()
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	serverApp := app.NewApplication(cfg).WithRateLimitKey(middleware.UserOrIP(issuer))
	handlers := initHandlers(cfg, serverApp, issuer)
	serverApp.SetApp(initHealth(cfg), handlers...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, serverApp *app.Application, issuer *auth.Issuer) []contracts.Handler {
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	eventRepo := eventrepo.NewMongoEventRepository(cfg)
	userRepo := userrepo.NewMongoUserRepository(cfg)

	guard := middleware.NewGuard(issuer, cfg.Log)

	var producers *kafkaProducers
	if cfg.KafkaEnabled {
		producers = initKafka(cfg)
		serverApp.OnShutdown(producers.close)
	}

	bookingValidator := bookingvalidator.NewBookingValidator(cfg.Log)
	bookingService := bookingservice.NewBookingService(
		bookingRepo,
		eventRepo,
		userRepo,
		ledger.New(bookingRepo, initLocker(cfg), cfg.Log),
		initDispatcher(cfg, serverApp, producers),
		initPublisher(producers),
		bookingValidator,
		cfg,
	)

	eventService := eventservice.NewEventService(eventRepo, bookingRepo, eventvalidator.NewEventValidator(), cfg)
	userService := userservice.NewUserService(userRepo, issuer, uservalidator.NewUserValidator(), cfg)

	cfg.Log.Info("Services initialized",
		"database", cfg.MongoDatabaseName,
		"locker", cfg.AdmissionLocker,
		"notifier", cfg.Notifier,
		"kafka_enabled", cfg.KafkaEnabled,
	)

	return []contracts.Handler{
		userhandler.NewUserHandler(userService, guard, cfg.Log),
		eventhandler.NewEventHandler(eventService, guard, cfg.Log),
		handler.NewBookingHandler(bookingService, bookingValidator, guard, cfg.BookingDeadlineDays, cfg.Log),
	}
}

func initLocker(cfg *config.Config) ledger.Locker {
	switch cfg.AdmissionLocker {
	case config.LockerRedis:
		return ledger.NewRedisLocker(cfg.Client.Redis, cfg.AdmissionLockTTL, cfg.AdmissionLockWait, cfg.Log)
	case config.LockerMongo:
		return ledger.NewMongoLocker(bookingrepo.NewAdmissionLockRepository(cfg), cfg.AdmissionLockTTL, cfg.AdmissionLockWait, cfg.Log)
	default:
		return ledger.NewMemoryLocker(cfg.AdmissionLockWait)
	}
}

type kafkaProducers struct {
	bookings      *kafka.Producer
	notifications *kafka.Producer
	cfg           *config.Config
}

func initKafka(cfg *config.Config) *kafkaProducers {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	p := &kafkaProducers{cfg: cfg}
	p.bookings = newProducer(cfg, kcfg, cfg.KafkaBookingsTopic)
	if cfg.Notifier == config.NotifierKafka {
		p.notifications = newProducer(cfg, kcfg, cfg.KafkaNotificationsTopic)
	}
	return p
}

func newProducer(cfg *config.Config, kcfg *kafka_config.Config, topic string) *kafka.Producer {
	producer, err := kafka.NewProducer(kcfg, topic, kcfg.DLQTopic(topic), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", topic, "error", err)
	}
	if kcfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return producer
}

func (p *kafkaProducers) close() {
	for _, producer := range []*kafka.Producer{p.bookings, p.notifications} {
		if producer == nil {
			continue
		}
		if err := producer.Close(); err != nil {
			p.cfg.Log.Error("Failed to close Kafka producer", "topic", producer.Topic(), "error", err)
		}
	}
}

func initPublisher(producers *kafkaProducers) publisher.Publisher {
	if producers == nil {
		return publisher.Noop{}
	}
	return publisher.NewKafkaPublisher(producers.bookings)
}

func initDispatcher(cfg *config.Config, serverApp *app.Application, producers *kafkaProducers) notify.Dispatcher {
	switch cfg.Notifier {
	case config.NotifierKafka:
		if producers == nil || producers.notifications == nil {
			cfg.Log.Fatal("Kafka notifier configured without a notifications producer")
		}
		return notify.NewKafkaDispatcher(producers.notifications, cfg.Log)
	case config.NotifierAMQP:
		dispatcher := notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPQueue, cfg.Log)
		serverApp.OnShutdown(func() {
			if err := dispatcher.Close(); err != nil {
				cfg.Log.Error("Failed to close RabbitMQ connection", "error", err)
			}
		})
		return dispatcher
	default:
		return notify.NewLogDispatcher(cfg.Log)
	}
}

func initHealth(cfg *config.Config) *handler.HealthHandler {
	checks := []handler.HealthCheck{{
		Name: "mongodb",
		Ping: func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, readpref.Primary())
		},
	}}
	if cfg.Client.Redis != nil {
		checks = append(checks, handler.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error {
				return cfg.Client.Redis.Ping(ctx).Err()
			},
		})
	}
	return handler.NewHealthHandler(cfg.Log, checks...)
}
