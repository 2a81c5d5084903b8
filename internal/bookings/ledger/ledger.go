package ledger

import (
	"context"
	"fmt"
	"time"

	bookingserrors "eventa/internal/bookings/errors"
	mongotx "eventa/pkg/db/mongo"
	"eventa/pkg/logger"
	"eventa/pkg/model"

	"github.com/google/uuid"
)

// Rejection reasons returned by TryReserve.
var (
	ErrCapacityExceeded = bookingserrors.ErrCapacityExceeded
	ErrEventNotFound    = bookingserrors.ErrEventNotFound
	ErrEventInPast      = bookingserrors.ErrEventInPast
)

// Store is the persistence the ledger needs. Every method except
// ExecuteTransaction must honour a session context passed in by the
// transaction callback.
type Store interface {
	// LockEvent resolves the event and writes to its document so that
	// concurrent admission transactions on the same event conflict.
	LockEvent(ctx context.Context, eventID string) (*model.Event, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int64, error)
	CreateMany(ctx context.Context, bookings []*model.Booking) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

// Guard runs inside the reservation transaction before the capacity check.
// A non-nil error aborts the reservation and is returned unchanged.
type Guard func(ctx context.Context) error

type ReserveRequest struct {
	EventID     string
	UserID      string
	AdmissionID string
	Seats       int
	Guard       Guard
}

type Reservation struct {
	AdmissionID string
	Event       *model.Event
	Bookings    []*model.Booking
	ActiveAfter int64
}

// Ledger owns the seat count of every event. The count is derived from the
// active bookings, so freeing a seat only requires the booking to leave the
// active set.
type Ledger struct {
	store  Store
	locker Locker
	log    *logger.Logger
	now    func() time.Time
}

func New(store Store, locker Locker, log *logger.Logger) *Ledger {
	return &Ledger{
		store:  store,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

func (l *Ledger) CurrentActiveCount(ctx context.Context, eventID string) (int64, error) {
	count, err := l.store.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}

// TryReserve atomically checks capacity and inserts one pending booking per
// requested seat. Either every seat is committed or none is.
func (l *Ledger) TryReserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	if req.Seats < 1 {
		return nil, bookingserrors.ErrInvalidSeats
	}
	if req.AdmissionID == "" {
		req.AdmissionID = uuid.NewString()
	}

	release, err := l.locker.Acquire(ctx, LockKey(req.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	var reservation *Reservation
	err = l.store.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		// The driver may run this callback more than once.
		reservation = nil

		event, err := l.store.LockEvent(txCtx, req.EventID)
		if err != nil {
			return err
		}

		now := l.now().UTC()
		if event.Date.Before(now) {
			return ErrEventInPast
		}

		if req.Guard != nil {
			if err := req.Guard(txCtx); err != nil {
				return err
			}
		}

		active, err := l.store.CountActiveByEvent(txCtx, req.EventID)
		if err != nil {
			return fmt.Errorf("failed to count active bookings: %w", err)
		}
		if active+int64(req.Seats) > int64(event.Capacity) {
			return ErrCapacityExceeded
		}

		bookings := newPendingBookings(req, now)
		if err := l.store.CreateMany(txCtx, bookings); err != nil {
			return fmt.Errorf("failed to insert bookings: %w", err)
		}

		reservation = &Reservation{
			AdmissionID: req.AdmissionID,
			Event:       event,
			Bookings:    bookings,
			ActiveAfter: active + int64(req.Seats),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("Seats reserved",
		"event_id", req.EventID,
		"user_id", req.UserID,
		"seats", req.Seats,
		"active", reservation.ActiveAfter,
		"capacity", reservation.Event.Capacity,
	)
	return reservation, nil
}

func newPendingBookings(req ReserveRequest, now time.Time) []*model.Booking {
	createdAt := now.Truncate(time.Millisecond)
	bookings := make([]*model.Booking, 0, req.Seats)
	for range req.Seats {
		bookings = append(bookings, &model.Booking{
			ID:          uuid.NewString(),
			EventID:     req.EventID,
			UserID:      req.UserID,
			AdmissionID: req.AdmissionID,
			Status:      model.BookingPending,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}
	return bookings
}

func LockKey(eventID string) string {
	return "admission_lock_" + eventID
}
