package service

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "eventa/internal/bookings/errors"
	"eventa/internal/bookings/ledger"
	"eventa/internal/bookings/publisher"
	"eventa/internal/bookings/validator"
	"eventa/pkg/auth"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/model"

	"github.com/google/uuid"
)

const (
	msgPastEvent     = "Cannot book past events"
	msgAlreadyBooked = "Already booked this event"
	msgEventFull     = "Event is full"
)

// Admit books seats for actor on an event. The checks run in order and stop
// at the first failure: the event exists, it is not in the past, the user
// holds no active booking for it, and enough seats are free.
func (s *bookingService) Admit(ctx context.Context, actor auth.Identity, req *model.BookingRequest) (*model.Admission, error) {
	if req.Seats == 0 {
		req.Seats = 1
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", validator.Details(err))
	}
	if req.Seats > s.cfg.MaxSeatsPerAdmission {
		return nil, apperrors.InvalidInput(fmt.Sprintf("At most %d seat(s) can be booked per request", s.cfg.MaxSeatsPerAdmission))
	}

	event, err := s.findEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Date.Before(s.now()) {
		return nil, apperrors.PastEvent(msgPastEvent)
	}

	existing, err := s.repo.FindActiveByEventAndUser(ctx, req.EventID, actor.UserID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing bookings", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict(msgAlreadyBooked)
	}

	reservation, err := s.ledger.TryReserve(ctx, ledger.ReserveRequest{
		EventID:     req.EventID,
		UserID:      actor.UserID,
		AdmissionID: uuid.NewString(),
		Seats:       req.Seats,
		Guard:       s.duplicateGuard(req.EventID, actor.UserID),
	})
	if err != nil {
		return nil, s.admissionError(req, actor, err)
	}

	admission := &model.Admission{
		ID:        reservation.AdmissionID,
		EventID:   req.EventID,
		Requested: req.Seats,
		Granted:   len(reservation.Bookings),
		Bookings:  reservation.Bookings,
		Message: fmt.Sprintf("Booking(s) Done! Please confirm booking(s) ASAP. Bookings are held for %d day(s).",
			s.cfg.BookingDeadlineDays),
	}

	s.cfg.Log.Info("Booking admitted",
		"admission_id", admission.ID,
		"event_id", admission.EventID,
		"user_id", actor.UserID,
		"seats", admission.Granted,
		"active", reservation.ActiveAfter,
		"capacity", reservation.Event.Capacity,
	)

	s.publish(ctx, publisher.Admitted(admission, actor.UserID))
	return admission, nil
}

// duplicateGuard re-checks inside the reservation transaction that the user
// holds no active booking, so two concurrent requests by the same user
// cannot both pass the pre-check.
func (s *bookingService) duplicateGuard(eventID, userID string) ledger.Guard {
	return func(txCtx context.Context) error {
		existing, err := s.repo.FindActiveByEventAndUser(txCtx, eventID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return bookingserrors.ErrDuplicateBooking
		}
		return nil
	}
}

func (s *bookingService) admissionError(req *model.BookingRequest, actor auth.Identity, err error) error {
	switch {
	case errors.Is(err, ledger.ErrCapacityExceeded):
		s.cfg.Log.Info("Booking rejected, event full", "event_id", req.EventID, "user_id", actor.UserID, "seats", req.Seats)
		return apperrors.EventFull(msgEventFull)
	case errors.Is(err, ledger.ErrEventNotFound):
		return apperrors.NotFoundWithID("Event", req.EventID)
	case errors.Is(err, ledger.ErrEventInPast):
		return apperrors.PastEvent(msgPastEvent)
	case errors.Is(err, bookingserrors.ErrDuplicateBooking):
		return apperrors.Conflict(msgAlreadyBooked)
	case errors.Is(err, bookingserrors.ErrInvalidSeats):
		return apperrors.InvalidInput("Requested seats must be positive")
	case errors.Is(err, bookingserrors.ErrLockTimeout):
		s.cfg.Log.Warn("Admission lock wait exceeded", "event_id", req.EventID, "error", err)
		return apperrors.Unavailable("Booking admission")
	}

	s.cfg.Log.Error("Failed to admit booking", "event_id", req.EventID, "user_id", actor.UserID, "error", err)
	return apperrors.Internal("Failed to create booking", err)
}
