package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	eventserrors "eventa/internal/events/errors"
	"eventa/internal/events/repository"
	"eventa/internal/events/validator"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/model"
	"eventa/pkg/sanitizer"
)

type EventService interface {
	Create(ctx context.Context, actor auth.Identity, event *model.Event) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.EventAvailability, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Event, int64, error)
	Update(ctx context.Context, id string, update *model.EventUpdate) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// BookingCounter reads the seat usage of an event from the bookings store.
type BookingCounter interface {
	CountActiveByEvent(ctx context.Context, eventID string) (int64, error)
	CountByStatusForEvent(ctx context.Context, eventID string) (model.BookingsDetails, error)
}

type eventService struct {
	repo      repository.EventRepository
	bookings  BookingCounter
	validator *validator.EventValidator
	cfg       *config.Config
}

func NewEventService(
	repo repository.EventRepository,
	bookings BookingCounter,
	validator *validator.EventValidator,
	cfg *config.Config,
) EventService {
	return &eventService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *eventService) Create(ctx context.Context, actor auth.Identity, event *model.Event) (*model.Event, error) {
	sanitizeEvent(event)
	event.CreatedBy = actor.UserID

	if err := s.validator.Validate(event); err != nil {
		s.cfg.Log.Warn("Event validation failed", "title", event.Title, "error", err)
		return nil, apperrors.Validation("Event validation failed", details(err))
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to create event", "title", event.Title, "error", err)
		return nil, apperrors.Internal("Failed to create event", err)
	}

	s.cfg.Log.Info("Event created",
		"id", event.ID,
		"title", event.Title,
		"capacity", event.Capacity,
		"created_by", event.CreatedBy,
	)
	return event, nil
}

// GetByID returns the event with its confirmed and pending counts and the
// seats still free.
func (s *eventService) GetByID(ctx context.Context, id string) (*model.EventAvailability, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := s.bookings.CountByStatusForEvent(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to count event bookings", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve event bookings", err)
	}

	return model.NewEventAvailability(event, details), nil
}

func (s *eventService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Event, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		events            []*model.Event
		count             int64
		errCount, errFind error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count events", "error", err)
			errCount = apperrors.Internal("Failed to count events", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		events, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all events", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve events", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return events, count, nil
}

// Update applies a partial update. A capacity change is checked against the
// active bookings in the same transaction that writes it, and the event
// write conflicts with any concurrent admission.
func (s *eventService) Update(ctx context.Context, id string, update *model.EventUpdate) (*model.Event, error) {
	sanitizeUpdate(update)

	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Event update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Event validation failed", details(err))
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		updated = nil
		if update.Capacity != nil {
			active, err := s.bookings.CountActiveByEvent(txCtx, id)
			if err != nil {
				return fmt.Errorf("failed to count active bookings: %w", err)
			}
			if int64(*update.Capacity) < active {
				return apperrors.Conflict(fmt.Sprintf(
					"Capacity cannot be lower than the %d active booking(s)", active,
				))
			}
		}

		event, err := s.repo.Update(txCtx, id, update)
		if err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, s.writeError("update", id, err)
	}

	s.cfg.Log.Info("Event updated", "id", id, "capacity", updated.Capacity)
	return updated, nil
}

// Delete removes an event that has no pending or confirmed bookings.
func (s *eventService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		active, err := s.bookings.CountActiveByEvent(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count active bookings: %w", err)
		}
		if active > 0 {
			return apperrors.Conflict(fmt.Sprintf("Event has %d active booking(s)", active))
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return s.writeError("delete", id, err)
	}

	s.cfg.Log.Info("Event deleted", "id", id)
	return nil
}

func (s *eventService) find(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) || errors.Is(err, eventserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Event", id)
		}
		s.cfg.Log.Error("Failed to get event", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve event", err)
	}
	return event, nil
}

func (s *eventService) writeError(op, id string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, eventserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Event", id)
	}
	s.cfg.Log.Error("Failed to "+op+" event", "id", id, "error", err)
	return apperrors.Internal("Failed to "+op+" event", err)
}

func sanitizeEvent(e *model.Event) {
	e.Title = sanitizer.NormalizeName(e.Title)
	e.Description = sanitizer.NormalizeText(e.Description)
	e.Location = sanitizer.NormalizeName(e.Location)
	e.Thumbnail = sanitizer.NormalizeURL(e.Thumbnail)
	e.Date = e.Date.UTC()
}

func sanitizeUpdate(u *model.EventUpdate) {
	if u.Title != nil {
		v := sanitizer.NormalizeName(*u.Title)
		u.Title = &v
	}
	if u.Description != nil {
		v := sanitizer.NormalizeText(*u.Description)
		u.Description = &v
	}
	if u.Location != nil {
		v := sanitizer.NormalizeName(*u.Location)
		u.Location = &v
	}
	if u.Thumbnail != nil {
		v := sanitizer.NormalizeURL(*u.Thumbnail)
		u.Thumbnail = &v
	}
}

func details(err error) map[string]any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return map[string]any{"errors": verrs}
	}
	return map[string]any{"errors": []validator.ValidationError{{Field: "body", Message: err.Error()}}}
}
