package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "eventa/internal/bookings/errors"
	"eventa/internal/bookings/ledger"
	"eventa/internal/bookings/publisher"
	"eventa/internal/bookings/repository"
	"eventa/internal/bookings/validator"
	eventserrors "eventa/internal/events/errors"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/model"
	"eventa/pkg/notify"
)

type BookingService interface {
	Admit(ctx context.Context, actor auth.Identity, req *model.BookingRequest) (*model.Admission, error)
	Transition(ctx context.Context, actor auth.Identity, id string, update *model.BookingStatusUpdate) (*model.Booking, error)
	GetByID(ctx context.Context, actor auth.Identity, id string) (*model.Booking, error)
	ListMine(ctx context.Context, actor auth.Identity) ([]*model.BookingWithEvent, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.BookingWithUser, error)
	FindStale(ctx context.Context, deadlineDays int) ([]*model.Booking, error)
	Remind(ctx context.Context, deadlineDays int) ([]model.ReminderResult, error)
	PurgeStale(ctx context.Context, deadlineDays int) ([]model.PurgeResult, error)
}

// EventReader resolves events. Missing events are reported as
// eventserrors.ErrNotFound.
type EventReader interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
}

type Reserver interface {
	TryReserve(ctx context.Context, req ledger.ReserveRequest) (*ledger.Reservation, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	events     EventReader
	users      UserReader
	ledger     Reserver
	dispatcher notify.Dispatcher
	publisher  publisher.Publisher
	validator  *validator.BookingValidator
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	events EventReader,
	users UserReader,
	reserver Reserver,
	dispatcher notify.Dispatcher,
	pub publisher.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if pub == nil {
		pub = publisher.Noop{}
	}
	return &bookingService{
		repo:       repo,
		events:     events,
		users:      users,
		ledger:     reserver,
		dispatcher: notify.WithTimeout(dispatcher, cfg.NotifyTimeout),
		publisher:  pub,
		validator:  validator,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *bookingService) GetByID(ctx context.Context, actor auth.Identity, id string) (*model.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.UserID && actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("You are not allowed to view this booking")
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, actor auth.Identity) ([]*model.BookingWithEvent, error) {
	bookings, err := s.repo.FindByUser(ctx, actor.UserID)
	if err != nil {
		s.cfg.Log.Error("Failed to list user bookings", "user_id", actor.UserID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	events, err := s.events.FindByIDs(ctx, eventIDs(bookings))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve booked events", err)
	}

	result := make([]*model.BookingWithEvent, 0, len(bookings))
	for _, b := range bookings {
		item := &model.BookingWithEvent{Booking: b}
		if e, ok := events[b.EventID]; ok {
			item.Event = e.Summary()
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *bookingService) ListByEvent(ctx context.Context, eventID string) ([]*model.BookingWithUser, error) {
	if _, err := s.findEvent(ctx, eventID); err != nil {
		return nil, err
	}

	bookings, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		s.cfg.Log.Error("Failed to list event bookings", "event_id", eventID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	users, err := s.users.FindByIDs(ctx, userIDs(bookings))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve booking owners", err)
	}

	result := make([]*model.BookingWithUser, 0, len(bookings))
	for _, b := range bookings {
		item := &model.BookingWithUser{Booking: b}
		if u, ok := users[b.UserID]; ok {
			item.User = u.Summary()
		}
		result = append(result, item)
	}
	return result, nil
}

// --- Helpers ---

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) findEvent(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) || errors.Is(err, eventserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Event", id)
		}
		return nil, apperrors.Internal("Failed to retrieve event", err)
	}
	return event, nil
}

func (s *bookingService) publish(ctx context.Context, event publisher.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"type", event.Type,
			"event_id", event.EventID,
			"booking_ids", event.BookingIDs,
			"error", err,
		)
	}
}

func eventIDs(bookings []*model.Booking) []string {
	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.EventID]; ok {
			continue
		}
		seen[b.EventID] = struct{}{}
		ids = append(ids, b.EventID)
	}
	return ids
}

func userIDs(bookings []*model.Booking) []string {
	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		ids = append(ids, b.UserID)
	}
	return ids
}
