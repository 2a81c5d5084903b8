package service

import (
	"context"
	"fmt"
	"time"

	"eventa/internal/bookings/publisher"
	"eventa/internal/bookings/validator"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/model"
	"eventa/pkg/notify"

	"golang.org/x/sync/errgroup"
)

const (
	transitionAttempts = 2

	reminderSubject = "eVENTA - Reminder to Confirm Booking"
	reasonNotStale  = "no longer pending"
)

// Transition moves a booking to the requested status. The owner may make any
// allowed transition; an admin may cancel any booking.
func (s *bookingService) Transition(ctx context.Context, actor auth.Identity, id string, update *model.BookingStatusUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateStatus(update); err != nil {
		s.cfg.Log.Warn("Booking status validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid status update", validator.Details(err))
	}

	for range transitionAttempts {
		booking, err := s.findBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorizeTransition(actor, booking, update.Status); err != nil {
			return nil, err
		}
		if !model.CanTransition(booking.Status, update.Status) {
			return nil, apperrors.InvalidTransition(booking.Status, update.Status)
		}

		updated, err := s.repo.UpdateStatus(ctx, id, booking.Status, update.Status)
		if err != nil {
			s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to update booking", err)
		}
		if !updated {
			// Changed under us; re-read and evaluate against the new status.
			continue
		}

		from := booking.Status
		booking.Status = update.Status
		booking.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

		s.cfg.Log.Info("Booking status updated",
			"id", id,
			"from", from,
			"to", booking.Status,
			"actor", actor.UserID,
		)
		s.publish(ctx, publisher.Transitioned(booking, from))
		return booking, nil
	}

	return nil, apperrors.Conflict("Booking was modified concurrently, please retry")
}

func authorizeTransition(actor auth.Identity, booking *model.Booking, target string) error {
	if booking.UserID == actor.UserID {
		return nil
	}
	if actor.Role == model.RoleAdmin && target == model.BookingCancelled {
		return nil
	}
	return apperrors.Forbidden("You are not allowed to modify this booking")
}

// FindStale returns pending bookings created more than deadlineDays ago.
func (s *bookingService) FindStale(ctx context.Context, deadlineDays int) ([]*model.Booking, error) {
	if deadlineDays < 0 {
		return nil, apperrors.InvalidInput("Deadline days cannot be negative")
	}

	cutoff := config.DeadlineCutoff(s.now().UTC(), deadlineDays)
	bookings, err := s.repo.FindStale(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Error("Failed to find stale bookings", "days", deadlineDays, "error", err)
		return nil, apperrors.Internal("Failed to find stale bookings", err)
	}
	return bookings, nil
}

// Remind notifies the owner of every stale booking. Each booking gets a
// result; a failed or slow delivery never stops the others.
func (s *bookingService) Remind(ctx context.Context, deadlineDays int) ([]model.ReminderResult, error) {
	stale, err := s.FindStale(ctx, deadlineDays)
	if err != nil {
		return nil, err
	}
	results := make([]model.ReminderResult, len(stale))
	if len(stale) == 0 {
		return results, nil
	}

	events, err := s.events.FindByIDs(ctx, eventIDs(stale))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve booked events", err)
	}
	users, err := s.users.FindByIDs(ctx, userIDs(stale))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve booking owners", err)
	}

	var g errgroup.Group
	g.SetLimit(max(s.cfg.NotifyConcurrency, 1))
	for i, booking := range stale {
		g.Go(func() error {
			results[i] = s.remindOne(ctx, booking, events[booking.EventID], users[booking.UserID])
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, r := range results {
		if r.Sent {
			sent++
		}
	}
	s.cfg.Log.Info("Reminders dispatched", "days", deadlineDays, "total", len(results), "sent", sent)
	return results, nil
}

func (s *bookingService) remindOne(ctx context.Context, booking *model.Booking, event *model.Event, user *model.User) model.ReminderResult {
	result := model.ReminderResult{
		BookingID: booking.ID,
		EventID:   booking.EventID,
	}
	if user == nil || user.Email == "" {
		result.Message = fmt.Sprintf("No recipient found for booking - %s", booking.ID)
		return result
	}
	result.Recipient = user.Email

	title := booking.EventID
	if event != nil {
		title = event.Title
	}

	s.cfg.Log.Debug("Sending reminder", "recipient", user.Email, "booking_id", booking.ID)
	result.Sent = s.dispatcher.Notify(ctx, notify.Notification{
		Recipient: user.Email,
		Subject:   reminderSubject,
		Title:     fmt.Sprintf("Reminder to Confirm Booking for %s Event", title),
		Body: fmt.Sprintf("Please confirm this booking before 2 hours after seeing this message. "+
			"Otherwise this booking will be deleted. Booking is for event %s, with an ID %s. Thank you", title, booking.ID),
	})

	if result.Sent {
		result.Message = fmt.Sprintf("Successfully sent email to %s for booking - %s", user.Email, booking.ID)
	} else {
		result.Message = fmt.Sprintf("Unable to send email to %s for booking - %s", user.Email, booking.ID)
	}
	return result
}

// PurgeStale deletes stale pending bookings. Each delete re-checks the
// status, so a booking confirmed after selection is kept.
func (s *bookingService) PurgeStale(ctx context.Context, deadlineDays int) ([]model.PurgeResult, error) {
	stale, err := s.FindStale(ctx, deadlineDays)
	if err != nil {
		return nil, err
	}

	cutoff := config.DeadlineCutoff(s.now().UTC(), deadlineDays)
	results := make([]model.PurgeResult, 0, len(stale))
	deleted := 0

	for _, booking := range stale {
		result := model.PurgeResult{BookingID: booking.ID, EventID: booking.EventID}

		ok, err := s.repo.DeleteStale(ctx, booking.ID, cutoff)
		switch {
		case err != nil:
			s.cfg.Log.Error("Failed to purge booking", "id", booking.ID, "error", err)
			result.Reason = "delete failed"
		case !ok:
			result.Reason = reasonNotStale
		default:
			result.Deleted = true
			deleted++
			s.publish(ctx, publisher.Purged(booking))
		}
		results = append(results, result)
	}

	s.cfg.Log.Info("Stale bookings purged", "days", deadlineDays, "selected", len(stale), "deleted", deleted)
	return results, nil
}
