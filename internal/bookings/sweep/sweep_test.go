package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventa/pkg/client"
	"eventa/pkg/logger"
	"eventa/pkg/model"
)

type fakeRunner struct {
	remindFn func(ctx context.Context, days int) ([]model.ReminderResult, error)
	purgeFn  func(ctx context.Context, days int) ([]model.PurgeResult, error)
	calls    []string
}

func (f *fakeRunner) Remind(ctx context.Context, days int) ([]model.ReminderResult, error) {
	f.calls = append(f.calls, ModeRemind)
	if f.remindFn != nil {
		return f.remindFn(ctx, days)
	}
	return nil, nil
}

func (f *fakeRunner) Purge(ctx context.Context, days int) ([]model.PurgeResult, error) {
	f.calls = append(f.calls, ModePurge)
	if f.purgeFn != nil {
		return f.purgeFn(ctx, days)
	}
	return nil, nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(&fakeRunner{}, "weekly", 1, logger.Discard()); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := New(&fakeRunner{}, ModeAll, -1, logger.Discard()); err == nil {
		t.Error("expected error for negative days")
	}
	if _, err := New(&fakeRunner{}, ModePurge, 0, logger.Discard()); err != nil {
		t.Errorf("zero days should be accepted: %v", err)
	}
}

func TestRunOnce_Modes(t *testing.T) {
	tests := []struct {
		mode  string
		calls []string
	}{
		{ModeRemind, []string{ModeRemind}},
		{ModePurge, []string{ModePurge}},
		{ModeAll, []string{ModeRemind, ModePurge}},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			runner := &fakeRunner{}
			s, err := New(runner, tt.mode, 1, logger.Discard())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := s.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce: %v", err)
			}
			if len(runner.calls) != len(tt.calls) {
				t.Fatalf("calls = %v, want %v", runner.calls, tt.calls)
			}
			for i := range tt.calls {
				if runner.calls[i] != tt.calls[i] {
					t.Errorf("calls = %v, want %v", runner.calls, tt.calls)
				}
			}
		})
	}
}

func TestRunOnce_Summary(t *testing.T) {
	runner := &fakeRunner{
		remindFn: func(_ context.Context, days int) ([]model.ReminderResult, error) {
			if days != 2 {
				t.Errorf("days = %d, want 2", days)
			}
			return []model.ReminderResult{{Sent: true}, {Sent: false}, {Sent: true}}, nil
		},
		purgeFn: func(context.Context, int) ([]model.PurgeResult, error) {
			return []model.PurgeResult{{Deleted: true}, {Deleted: false, Reason: "no longer pending"}}, nil
		},
	}
	s, _ := New(runner, ModeAll, 2, logger.Discard())

	summary, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	want := Summary{Reminded: 2, Unsent: 1, Purged: 1, Kept: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestRunOnce_RemindFailureSkipsPurge(t *testing.T) {
	runner := &fakeRunner{
		remindFn: func(context.Context, int) ([]model.ReminderResult, error) {
			return nil, errors.New("mongo down")
		},
	}
	s, _ := New(runner, ModeAll, 1, logger.Discard())

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(runner.calls) != 1 {
		t.Errorf("purge should not run after a failed reminder pass, calls = %v", runner.calls)
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 10)
	runner := &fakeRunner{
		purgeFn: func(context.Context, int) ([]model.PurgeResult, error) {
			runs <- struct{}{}
			return nil, nil
		},
	}
	s, _ := New(runner, ModePurge, 1, logger.Discard())

	done := make(chan struct{})
	go func() {
		s.Loop(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("first pass should run immediately")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Loop did not stop after cancel")
	}
}

func TestRemoteRunner(t *testing.T) {
	var gotAuth string
	var gotDays int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req model.DeadlineRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Days != nil {
			gotDays = *req.Days
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case RemindersPath:
			_, _ = w.Write([]byte(`{"data":[{"booking_id":"b1","event_id":"e1","sent":true,"message":"ok"}]}`))
		case PurgePath:
			_, _ = w.Write([]byte(`{"data":[{"booking_id":"b2","event_id":"e1","deleted":true}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	runner := RemoteRunner{Client: client.NewHttpClient(srv.URL, "tok", time.Second)}

	reminders, err := runner.Remind(context.Background(), 3)
	if err != nil {
		t.Fatalf("Remind: %v", err)
	}
	if len(reminders) != 1 || reminders[0].BookingID != "b1" || !reminders[0].Sent {
		t.Errorf("reminders = %+v", reminders)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotDays != 3 {
		t.Errorf("days = %d, want 3", gotDays)
	}

	purged, err := runner.Purge(context.Background(), 0)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if len(purged) != 1 || !purged[0].Deleted {
		t.Errorf("purged = %+v", purged)
	}
}

func TestRemoteRunner_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Insufficient role","code":"FORBIDDEN"}`))
	}))
	defer srv.Close()

	runner := RemoteRunner{Client: client.NewHttpClient(srv.URL, "", time.Second)}
	if _, err := runner.Remind(context.Background(), 1); err == nil {
		t.Fatal("expected error for 403")
	}
}
