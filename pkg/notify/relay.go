package notify

import (
	"context"
	"strings"

	"eventa/pkg/kafka"
	"eventa/pkg/logger"
)

// RelayHandler consumes e-mail requests published by KafkaDispatcher and
// hands them to next. Undecodable or unaddressed messages are permanent
// failures; a delivery that next reports as failed is transient and retried.
func RelayHandler(next Dispatcher, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.GetEventType(); eventType != "" && eventType != EventTypeEmail {
			log.Debug("Skipping non e-mail message", "event_type", eventType, "key", msg.Key)
			return nil
		}

		var email EmailMessage
		if err := msg.DecodeValue(&email); err != nil {
			return kafka.NewPermanentError("invalid notification payload", err)
		}
		if strings.TrimSpace(email.Recipient) == "" {
			return kafka.NewPermanentError("notification has no recipient", nil)
		}

		if !next.Notify(ctx, email.Notification) {
			return kafka.NewTransientError("notification delivery failed", nil)
		}
		log.Info("Notification relayed",
			"recipient", email.Recipient,
			"subject", email.Subject,
			"event_id", msg.GetEventID(),
		)
		return nil
	}
}
