package sweep

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"eventa/internal/bookings/service"
	"eventa/pkg/client"
	"eventa/pkg/logger"
	"eventa/pkg/model"
)

const (
	ModeRemind = "remind"
	ModePurge  = "purge"
	ModeAll    = "all"

	RemindersPath = "/api/v1/internal/bookings/reminders"
	PurgePath     = "/api/v1/internal/bookings/purge"
)

// Runner performs one reminder or purge pass over stale pending bookings.
type Runner interface {
	Remind(ctx context.Context, days int) ([]model.ReminderResult, error)
	Purge(ctx context.Context, days int) ([]model.PurgeResult, error)
}

// ServiceRunner sweeps through the booking service directly.
type ServiceRunner struct {
	Service service.BookingService
}

func (r ServiceRunner) Remind(ctx context.Context, days int) ([]model.ReminderResult, error) {
	return r.Service.Remind(ctx, days)
}

func (r ServiceRunner) Purge(ctx context.Context, days int) ([]model.PurgeResult, error) {
	return r.Service.PurgeStale(ctx, days)
}

// RemoteRunner sweeps through the internal routes of a running service.
type RemoteRunner struct {
	Client *client.HttpClient
}

func (r RemoteRunner) Remind(ctx context.Context, days int) ([]model.ReminderResult, error) {
	var results []model.ReminderResult
	if err := r.post(ctx, RemindersPath, days, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r RemoteRunner) Purge(ctx context.Context, days int) ([]model.PurgeResult, error) {
	var results []model.PurgeResult
	if err := r.post(ctx, PurgePath, days, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r RemoteRunner) post(ctx context.Context, path string, days int, target any) error {
	resp, err := r.Client.POST(ctx, path, model.DeadlineRequest{Days: &days})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, client.GetErrorMessage(resp))
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: target}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

type Summary struct {
	Reminded int
	Unsent   int
	Purged   int
	Kept     int
}

// Sweeper runs passes in the configured mode.
type Sweeper struct {
	runner Runner
	mode   string
	days   int
	log    *logger.Logger
}

func New(runner Runner, mode string, days int, log *logger.Logger) (*Sweeper, error) {
	switch mode {
	case ModeRemind, ModePurge, ModeAll:
	default:
		return nil, fmt.Errorf("mode must be one of [remind, purge, all], got: %s", mode)
	}
	if days < 0 {
		return nil, fmt.Errorf("days cannot be negative, got: %d", days)
	}
	return &Sweeper{runner: runner, mode: mode, days: days, log: log}, nil
}

// RunOnce reminds before it purges, so in "all" mode an owner is notified
// in the same pass that may delete the booking on a shorter deadline.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	if s.mode == ModeRemind || s.mode == ModeAll {
		results, err := s.runner.Remind(ctx, s.days)
		if err != nil {
			return summary, fmt.Errorf("reminder pass failed: %w", err)
		}
		for _, r := range results {
			if r.Sent {
				summary.Reminded++
			} else {
				summary.Unsent++
				s.log.Warn("Reminder not delivered", "booking_id", r.BookingID, "message", r.Message)
			}
		}
	}

	if s.mode == ModePurge || s.mode == ModeAll {
		results, err := s.runner.Purge(ctx, s.days)
		if err != nil {
			return summary, fmt.Errorf("purge pass failed: %w", err)
		}
		for _, r := range results {
			if r.Deleted {
				summary.Purged++
			} else {
				summary.Kept++
			}
		}
	}

	s.log.Info("Sweep completed",
		"mode", s.mode,
		"days", s.days,
		"reminded", summary.Reminded,
		"unsent", summary.Unsent,
		"purged", summary.Purged,
		"kept", summary.Kept,
	)
	return summary, nil
}

// Loop runs a pass immediately and then every interval until ctx is done.
// A failed pass is logged and retried on the next tick.
func (s *Sweeper) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("Sweep failed", "mode", s.mode, "error", err)
		}
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
