package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	eventserrors "eventa/internal/events/errors"
	"eventa/internal/events/validator"
	"eventa/pkg/auth"
	"eventa/pkg/config"
	mongotx "eventa/pkg/db/mongo"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/logger"
	"eventa/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repository and booking counter
// ────────────────────────────────────────────────

type mockEventRepository struct {
	mu     sync.Mutex
	events map[string]*model.Event
	seq    int

	findAllFunc func(ctx context.Context, limit int, offset int64) ([]*model.Event, error)
	countFunc   func(ctx context.Context) (int64, error)
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{events: make(map[string]*model.Event)}
}

func (m *mockEventRepository) Create(ctx context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	event.ID = fmt.Sprintf("evt-%d", m.seq)
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *mockEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (m *mockEventRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error) {
	out := make(map[string]*model.Event)
	for _, id := range ids {
		if e, err := m.FindByID(ctx, id); err == nil {
			out[id] = e
		}
	}
	return out, nil
}

func (m *mockEventRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Event, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Event{}, nil
}

func (m *mockEventRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockEventRepository) Update(ctx context.Context, id string, update *model.EventUpdate) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	if update.Title != nil {
		e.Title = *update.Title
	}
	if update.Capacity != nil {
		e.Capacity = *update.Capacity
	}
	if update.Price != nil {
		e.Price = *update.Price
	}
	e.AdmissionSeq++
	cp := *e
	return &cp, nil
}

func (m *mockEventRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	delete(m.events, id)
	return nil
}

func (m *mockEventRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type mockBookingCounter struct {
	active  int64
	details model.BookingsDetails
	err     error
}

func (m *mockBookingCounter) CountActiveByEvent(ctx context.Context, eventID string) (int64, error) {
	return m.active, m.err
}

func (m *mockBookingCounter) CountByStatusForEvent(ctx context.Context, eventID string) (model.BookingsDetails, error) {
	return m.details, m.err
}

func newTestService(repo *mockEventRepository, counter *mockBookingCounter) EventService {
	cfg := &config.Config{
		Log:         logger.Discard(),
		ReadTimeout: time.Second,
	}
	return NewEventService(repo, counter, validator.NewEventValidator(), cfg)
}

func newEvent() *model.Event {
	return &model.Event{
		Title:       "  Go   Meetup ",
		Description: "Talks and pizza\n",
		Location:    "Berlin",
		Thumbnail:   "http://Example.com/t.png?utm_source=x",
		Date:        time.Now().Add(72 * time.Hour),
		Capacity:    3,
		Price:       12.5,
	}
}

func admin() auth.Identity {
	return auth.Identity{UserID: "admin-1", Role: model.RoleAdmin}
}

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestCreate_SanitizesAndStampsCreator(t *testing.T) {
	repo := newMockEventRepository()
	svc := newTestService(repo, &mockBookingCounter{})

	event, err := svc.Create(context.Background(), admin(), newEvent())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if event.Title != "Go Meetup" {
		t.Errorf("title = %q", event.Title)
	}
	if event.Thumbnail != "https://example.com/t.png" {
		t.Errorf("thumbnail = %q", event.Thumbnail)
	}
	if event.CreatedBy != "admin-1" {
		t.Errorf("created_by = %q", event.CreatedBy)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	svc := newTestService(newMockEventRepository(), &mockBookingCounter{})

	e := newEvent()
	e.Capacity = 0
	_, err := svc.Create(context.Background(), admin(), e)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := apperrors.AsAppError(err).Details["errors"]; !ok {
		t.Error("validation error should carry field details")
	}
}

func TestGetByID_Availability(t *testing.T) {
	repo := newMockEventRepository()
	counter := &mockBookingCounter{details: model.BookingsDetails{Confirmed: 1, Pending: 1}}
	svc := newTestService(repo, counter)

	created, _ := svc.Create(context.Background(), admin(), newEvent())
	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Seats != 1 || got.BookingsDetails.Confirmed != 1 || got.BookingsDetails.Pending != 1 {
		t.Errorf("availability = %+v", got)
	}

	if _, err := svc.GetByID(context.Background(), "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetAll_ConcurrentAccess(t *testing.T) {
	var receivedLimit int
	repo := newMockEventRepository()
	repo.findAllFunc = func(ctx context.Context, limit int, offset int64) ([]*model.Event, error) {
		receivedLimit = limit
		return []*model.Event{{ID: "a"}, {ID: "b"}}, nil
	}
	repo.countFunc = func(ctx context.Context) (int64, error) { return 2, nil }
	svc := newTestService(repo, &mockBookingCounter{})

	events, total, err := svc.GetAll(context.Background(), 0, -4)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(events) != 2 || total != 2 {
		t.Errorf("got %d events, total %d", len(events), total)
	}
	if receivedLimit != 10 {
		t.Errorf("limit should default to 10, got %d", receivedLimit)
	}
}

func TestGetAll_CountFailure(t *testing.T) {
	repo := newMockEventRepository()
	repo.countFunc = func(ctx context.Context) (int64, error) { return 0, errors.New("boom") }
	svc := newTestService(repo, &mockBookingCounter{})

	if _, _, err := svc.GetAll(context.Background(), 10, 0); !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestUpdate_Capacity(t *testing.T) {
	tests := []struct {
		name     string
		active   int64
		capacity int
		wantCode string
	}{
		{"raise", 3, 10, ""},
		{"lower to active count", 2, 2, ""},
		{"below active count", 3, 2, apperrors.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockEventRepository()
			svc := newTestService(repo, &mockBookingCounter{active: tt.active})
			created, _ := svc.Create(context.Background(), admin(), newEvent())

			capacity := tt.capacity
			updated, err := svc.Update(context.Background(), created.ID, &model.EventUpdate{Capacity: &capacity})
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				stored, _ := repo.FindByID(context.Background(), created.ID)
				if stored.Capacity != 3 {
					t.Errorf("rejected update changed capacity to %d", stored.Capacity)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if updated.Capacity != tt.capacity {
				t.Errorf("capacity = %d, want %d", updated.Capacity, tt.capacity)
			}
		})
	}
}

func TestUpdate_Rejections(t *testing.T) {
	repo := newMockEventRepository()
	svc := newTestService(repo, &mockBookingCounter{})
	created, _ := svc.Create(context.Background(), admin(), newEvent())

	if _, err := svc.Update(context.Background(), created.ID, &model.EventUpdate{}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty update: expected validation error, got %v", err)
	}

	title := "New"
	if _, err := svc.Update(context.Background(), "missing", &model.EventUpdate{Title: &title}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing event: expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockEventRepository()
	counter := &mockBookingCounter{active: 1}
	svc := newTestService(repo, counter)
	created, _ := svc.Create(context.Background(), admin(), newEvent())

	if err := svc.Delete(context.Background(), created.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict with active bookings, got %v", err)
	}

	counter.active = 0
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}
