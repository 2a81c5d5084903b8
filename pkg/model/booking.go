package model

import (
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// ActiveBookingStatuses are the statuses that hold a seat.
var ActiveBookingStatuses = []string{BookingPending, BookingConfirmed}

var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to
// another. Nothing leaves cancelled and a status never transitions to itself.
func CanTransition(from, to string) bool {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func IsActiveStatus(status string) bool {
	return status == BookingPending || status == BookingConfirmed
}

type Booking struct {
	ID          string    `json:"id" bson:"_id"`
	EventID     string    `json:"event_id" bson:"event_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	AdmissionID string    `json:"admission_id" bson:"admission_id"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the body of an admission request. Seats is sent as
// "number" to stay compatible with existing clients.
type BookingRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
	Seats   int    `json:"number" validate:"omitempty,min=1"`
}

type BookingStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}

type DeadlineRequest struct {
	Days *int `json:"days" validate:"required,min=0,max=3650"`
}

// Admission is the result of a granted admission request. It is all or
// nothing: Granted always equals Requested.
type Admission struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Requested int        `json:"requested"`
	Granted   int        `json:"granted"`
	Bookings  []*Booking `json:"bookings"`
	Message   string     `json:"message"`
}

type EventSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Price       float64   `json:"price"`
}

type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type BookingWithEvent struct {
	*Booking
	Event *EventSummary `json:"event,omitempty"`
}

type BookingWithUser struct {
	*Booking
	User *UserSummary `json:"user,omitempty"`
}

type ReminderResult struct {
	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	Recipient string `json:"recipient,omitempty"`
	Sent      bool   `json:"sent"`
	Message   string `json:"message"`
}

type PurgeResult struct {
	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	Deleted   bool   `json:"deleted"`
	Reason    string `json:"reason,omitempty"`
}

// AdmissionLock is an advisory lease document serializing admissions for
// one event across instances.
type AdmissionLock struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}
