package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eventa/internal/bookings/ledger"
	bookingrepo "eventa/internal/bookings/repository"
	bookingservice "eventa/internal/bookings/service"
	"eventa/internal/bookings/sweep"
	bookingvalidator "eventa/internal/bookings/validator"
	eventrepo "eventa/internal/events/repository"
	userrepo "eventa/internal/users/repository"
	"eventa/pkg/auth"
	"eventa/pkg/client"
	"eventa/pkg/config"
	"eventa/pkg/kafka"
	kafka_config "eventa/pkg/kafka/config"
	"eventa/pkg/model"
	"eventa/pkg/notify"

	"github.com/spf13/pflag"
)

const JobName = "booking-sweeper"

type flags struct {
	days   int
	mode   string
	once   bool
	remote string
	token  string
}

func main() {
	cfg := config.Load(JobName)

	var f flags
	pflag.IntVar(&f.days, "days", cfg.BookingDeadlineDays, "age in days after which a pending booking is stale")
	pflag.StringVar(&f.mode, "mode", sweep.ModeAll, "sweep mode: remind, purge or all")
	pflag.BoolVar(&f.once, "once", false, "run a single pass and exit")
	pflag.DurationVar(&cfg.SweepInterval, "interval", cfg.SweepInterval, "time between passes")
	pflag.StringVar(&f.remote, "remote", "", "base URL of a running bookings service; sweeps the database directly when empty")
	pflag.StringVar(&f.token, "token", "", "admin bearer token for --remote; minted from JWT_SECRET when empty")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, closeRunner := initRunner(cfg, f)
	sweeper, err := sweep.New(runner, f.mode, f.days, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Invalid sweeper flags", "error", err)
	}

	cfg.Log.Info("Starting booking sweeper",
		"mode", f.mode,
		"days", f.days,
		"once", f.once,
		"interval", cfg.SweepInterval,
		"remote", f.remote,
	)

	if f.once {
		_, err = sweeper.RunOnce(ctx)
	} else {
		sweeper.Loop(ctx, cfg.SweepInterval)
	}
	closeRunner()
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Sweep failed", "error", err)
	}
}

func initRunner(cfg *config.Config, f flags) (sweep.Runner, func()) {
	if f.remote != "" {
		token := f.token
		if token == "" {
			var err error
			token, _, err = auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL).Issue(JobName, model.RoleAdmin)
			if err != nil {
				cfg.Log.Fatal("Failed to mint sweeper token", "error", err)
			}
		}
		return sweep.RemoteRunner{Client: client.NewHttpClient(f.remote, token, cfg.RequestTimeout)}, func() {}
	}

	cfg.SetMongo()
	dispatcher, closeDispatcher := initDispatcher(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	svc := bookingservice.NewBookingService(
		bookingRepo,
		eventrepo.NewMongoEventRepository(cfg),
		userrepo.NewMongoUserRepository(cfg),
		ledger.New(bookingRepo, ledger.NewMemoryLocker(cfg.AdmissionLockWait), cfg.Log),
		dispatcher,
		nil,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)
	return sweep.ServiceRunner{Service: svc}, closeDispatcher
}

func initDispatcher(cfg *config.Config) (notify.Dispatcher, func()) {
	switch cfg.Notifier {
	case config.NotifierAMQP:
		dispatcher := notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPQueue, cfg.Log)
		return dispatcher, func() { closeWithLog(cfg, "RabbitMQ connection", dispatcher.Close) }
	case config.NotifierKafka:
		kcfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		topic := cfg.KafkaNotificationsTopic
		producer, err := kafka.NewProducer(kcfg, topic, kcfg.DLQTopic(topic), cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "topic", topic, "error", err)
		}
		return notify.NewKafkaDispatcher(producer, cfg.Log), func() { closeWithLog(cfg, "Kafka producer", producer.Close) }
	default:
		return notify.NewLogDispatcher(cfg.Log), func() {}
	}
}

func closeWithLog(cfg *config.Config, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		cfg.Log.Error("Failed to close "+name, "error", err)
	}
}
