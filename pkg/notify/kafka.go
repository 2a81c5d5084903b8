package notify

import (
	"context"

	"eventa/pkg/kafka"
	"eventa/pkg/logger"
)

// KafkaDispatcher publishes e-mail requests on the notifications topic,
// keyed by recipient.
type KafkaDispatcher struct {
	publisher kafka.Publisher
	log       *logger.Logger
}

func NewKafkaDispatcher(publisher kafka.Publisher, log *logger.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: publisher, log: log}
}

func (d *KafkaDispatcher) Notify(ctx context.Context, n Notification) bool {
	if !validRecipient(n) {
		return false
	}

	payload, err := newEmailMessage(n)
	if err != nil {
		d.log.Error("Failed to render notification", "recipient", n.Recipient, "error", err)
		return false
	}

	msg, err := kafka.NewMessage().
		WithKey(n.Recipient).
		WithValue(payload).
		WithEventType(EventTypeEmail).
		WithSchemaVersion("1").
		WithSource("eventa").
		Build()
	if err != nil {
		d.log.Error("Failed to build notification message", "recipient", n.Recipient, "error", err)
		return false
	}

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.log.Warn("Failed to publish notification", "recipient", n.Recipient, "error", err)
		return false
	}
	return true
}
