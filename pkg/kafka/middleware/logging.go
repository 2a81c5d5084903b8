package kafka_middleware

import (
	"context"
	"time"

	"eventa/pkg/kafka"
	"eventa/pkg/logger"
)

// LoggingProducerMiddleware logs every publish with its outcome and latency.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Error("kafka publish failed", append(attrs, "error", err)...)
			return err
		}
		log.Debug("kafka message published", attrs...)
		return nil
	}
}

// RecoveryProducerMiddleware converts a panic in the chain into a permanent error.
func RecoveryProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while publishing kafka message", "topic", msg.Topic, "key", msg.Key, "panic", r)
				err = kafka.NewPermanentError("panic while publishing message", nil)
			}
		}()
		return next(ctx, msg)
	}
}
