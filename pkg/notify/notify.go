// Package notify delivers user-facing notifications. Delivery is best
// effort: a Dispatcher reports success or failure and never retries.
package notify

import (
	"context"
	"strings"
	"time"

	"eventa/pkg/logger"
)

type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

type Dispatcher interface {
	Notify(ctx context.Context, n Notification) bool
}

// Func adapts a plain function to Dispatcher.
type Func func(ctx context.Context, n Notification) bool

func (f Func) Notify(ctx context.Context, n Notification) bool {
	return f(ctx, n)
}

func validRecipient(n Notification) bool {
	return strings.TrimSpace(n.Recipient) != ""
}

type timeoutDispatcher struct {
	next    Dispatcher
	timeout time.Duration
}

// WithTimeout bounds every Notify call on next. A call still running when
// the timeout passes is reported as failed.
func WithTimeout(next Dispatcher, timeout time.Duration) Dispatcher {
	if timeout <= 0 {
		return next
	}
	return &timeoutDispatcher{next: next, timeout: timeout}
}

func (d *timeoutDispatcher) Notify(ctx context.Context, n Notification) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- d.next.Notify(ctx, n)
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}

// LogDispatcher writes notifications to the log instead of sending them.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Notify(ctx context.Context, n Notification) bool {
	if !validRecipient(n) {
		d.log.Warn("Notification dropped, no recipient", "subject", n.Subject)
		return false
	}
	d.log.Info("Notification",
		"recipient", n.Recipient,
		"subject", n.Subject,
		"title", n.Title,
		"body", n.Body,
	)
	return true
}
