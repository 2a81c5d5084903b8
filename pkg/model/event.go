package model

import "time"

type Event struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title" validate:"required,min=1,max=200"`
	Description  string    `json:"description" bson:"description" validate:"required,min=1,max=5000"`
	Location     string    `json:"location" bson:"location" validate:"required,min=1,max=300"`
	Thumbnail    string    `json:"thumbnail" bson:"thumbnail" validate:"required,min=1,max=2048"`
	Date         time.Time `json:"date" bson:"date" validate:"required"`
	Capacity     int       `json:"capacity" bson:"capacity" validate:"required,gt=0"`
	Price        float64   `json:"price" bson:"price" validate:"gte=0"`
	CreatedBy    string    `json:"created_by" bson:"created_by"`
	AdmissionSeq int64     `json:"-" bson:"admission_seq"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type EventUpdate struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1,max=5000"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,min=1,max=300"`
	Thumbnail   *string    `json:"thumbnail,omitempty" validate:"omitempty,max=2048"`
	Date        *time.Time `json:"date,omitempty"`
	Capacity    *int       `json:"capacity,omitempty" validate:"omitempty,gt=0"`
	Price       *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
}

func (u *EventUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Location == nil &&
		u.Thumbnail == nil && u.Date == nil && u.Capacity == nil && u.Price == nil
}

type BookingsDetails struct {
	Confirmed int64 `json:"confirmed"`
	Pending   int64 `json:"pending"`
}

// EventAvailability is an event together with its live seat usage.
type EventAvailability struct {
	*Event
	BookingsDetails BookingsDetails `json:"bookings_details"`
	Seats           int64           `json:"seats"`
}

func NewEventAvailability(event *Event, details BookingsDetails) *EventAvailability {
	seats := int64(event.Capacity) - details.Confirmed - details.Pending
	return &EventAvailability{
		Event:           event,
		BookingsDetails: details,
		Seats:           max(seats, 0),
	}
}

func (e *Event) Summary() *EventSummary {
	return &EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Date:        e.Date,
		Price:       e.Price,
	}
}
