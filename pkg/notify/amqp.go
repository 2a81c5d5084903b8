package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"eventa/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDispatcher publishes persistent e-mail requests to a durable RabbitMQ
// queue on the default exchange. The connection is opened on first use and
// reopened after the broker drops it.
type AMQPDispatcher struct {
	url   string
	queue string
	log   *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPDispatcher(url, queue string, log *logger.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{url: url, queue: queue, log: log}
}

func (d *AMQPDispatcher) Notify(ctx context.Context, n Notification) bool {
	if !validRecipient(n) {
		return false
	}

	payload, err := newEmailMessage(n)
	if err != nil {
		d.log.Error("Failed to render notification", "recipient", n.Recipient, "error", err)
		return false
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("Failed to encode notification", "recipient", n.Recipient, "error", err)
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		d.log.Warn("RabbitMQ unavailable", "queue", d.queue, "error", err)
		return false
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         EventTypeEmail,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", d.queue, false, false, pub); err != nil {
		d.log.Warn("Failed to publish notification", "queue", d.queue, "recipient", n.Recipient, "error", err)
		d.reset()
		return false
	}
	return true
}

// channel must be called with d.mu held.
func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}

	if d.conn == nil || d.conn.IsClosed() {
		conn, err := amqp.Dial(d.url)
		if err != nil {
			return nil, fmt.Errorf("dial failed: %w", err)
		}
		d.conn = conn
	}

	ch, err := d.conn.Channel()
	if err != nil {
		d.reset()
		return nil, fmt.Errorf("channel open failed: %w", err)
	}

	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		d.reset()
		return nil, fmt.Errorf("queue declare failed: %w", err)
	}

	d.ch = ch
	return ch, nil
}

func (d *AMQPDispatcher) reset() {
	if d.ch != nil {
		_ = d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	return nil
}
