package publisher

import (
	"context"
	"time"

	"eventa/pkg/kafka"
	"eventa/pkg/middleware"
	"eventa/pkg/model"
)

const (
	EventAdmitted  = "booking.admitted"
	EventConfirmed = "booking.confirmed"
	EventCancelled = "booking.cancelled"
	EventPurged    = "booking.purged"

	schemaVersion = "1"
	source        = "bookings"
)

// BookingEvent is the domain event emitted on every booking state change.
type BookingEvent struct {
	Type           string    `json:"type"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	AdmissionID    string    `json:"admission_id,omitempty"`
	BookingIDs     []string  `json:"booking_ids"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

func Admitted(admission *model.Admission, userID string) BookingEvent {
	ids := make([]string, 0, len(admission.Bookings))
	for _, b := range admission.Bookings {
		ids = append(ids, b.ID)
	}
	return BookingEvent{
		Type:        EventAdmitted,
		EventID:     admission.EventID,
		UserID:      userID,
		AdmissionID: admission.ID,
		BookingIDs:  ids,
		Status:      model.BookingPending,
		OccurredAt:  time.Now().UTC(),
	}
}

// Transitioned maps a status change to its domain event.
func Transitioned(booking *model.Booking, from string) BookingEvent {
	eventType := EventCancelled
	if booking.Status == model.BookingConfirmed {
		eventType = EventConfirmed
	}
	return BookingEvent{
		Type:           eventType,
		EventID:        booking.EventID,
		UserID:         booking.UserID,
		AdmissionID:    booking.AdmissionID,
		BookingIDs:     []string{booking.ID},
		Status:         booking.Status,
		PreviousStatus: from,
		OccurredAt:     time.Now().UTC(),
	}
}

func Purged(booking *model.Booking) BookingEvent {
	return BookingEvent{
		Type:           EventPurged,
		EventID:        booking.EventID,
		UserID:         booking.UserID,
		AdmissionID:    booking.AdmissionID,
		BookingIDs:     []string{booking.ID},
		PreviousStatus: model.BookingPending,
		OccurredAt:     time.Now().UTC(),
	}
}

// KafkaPublisher writes booking events keyed by event id, so every change to
// one event lands on the same partition in order.
type KafkaPublisher struct {
	producer kafka.Publisher
}

func NewKafkaPublisher(producer kafka.Publisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	builder := kafka.NewMessage().
		WithKey(event.EventID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(schemaVersion).
		WithSource(source)
	if requestID := middleware.RequestIDFrom(ctx); requestID != "" {
		builder = builder.WithCorrelationID(requestID)
	}

	msg, err := builder.Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

type Noop struct{}

func (Noop) Publish(context.Context, BookingEvent) error { return nil }
