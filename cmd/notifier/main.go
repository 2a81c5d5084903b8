package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"eventa/pkg/config"
	"eventa/pkg/kafka"
	kafka_config "eventa/pkg/kafka/config"
	"eventa/pkg/notify"

	"github.com/spf13/pflag"
)

const JobName = "notification-relay"

// Relays notification.email messages from the notifications topic to the
// RabbitMQ mail queue, or to the log for local development.
func main() {
	cfg := config.Load(JobName)

	group := pflag.String("group", "eventa-notifier", "Kafka consumer group")
	deliver := pflag.String("deliver", config.NotifierAMQP, "delivery target: amqp or log")
	pflag.Parse()

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	var target notify.Dispatcher
	closeTarget := func() {}
	switch *deliver {
	case config.NotifierAMQP:
		dispatcher := notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPQueue, cfg.Log)
		target = dispatcher
		closeTarget = func() { _ = dispatcher.Close() }
	case config.NotifierLog:
		target = notify.NewLogDispatcher(cfg.Log)
	default:
		cfg.Log.Fatal("Unknown delivery target", "deliver", *deliver)
	}

	topic := cfg.KafkaNotificationsTopic
	consumer, err := kafka.NewConsumer(
		kcfg,
		topic,
		*group,
		kcfg.DLQTopic(topic),
		notify.RelayHandler(notify.WithTimeout(target, cfg.NotifyTimeout), cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "topic", topic, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notification relay", "topic", topic, "group", *group, "deliver", *deliver)
	runErr := consumer.Start(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	closeTarget()

	if runErr != nil {
		cfg.Log.Fatal("Consumer stopped", "error", runErr)
	}
	cfg.Log.Info("Notification relay stopped")
}
