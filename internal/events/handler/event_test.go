package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventa/pkg/auth"
	apperrors "eventa/pkg/errors"
	httputil "eventa/pkg/http"
	"eventa/pkg/logger"
	"eventa/pkg/middleware"
	"eventa/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockEventService struct {
	createFunc func(ctx context.Context, actor auth.Identity, event *model.Event) (*model.Event, error)
	getAllFunc func(ctx context.Context, limit int, offset int64) ([]*model.Event, int64, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockEventService) Create(ctx context.Context, actor auth.Identity, event *model.Event) (*model.Event, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, event)
	}
	return event, nil
}

func (m *mockEventService) GetByID(ctx context.Context, id string) (*model.EventAvailability, error) {
	return nil, apperrors.NotFoundWithID("Event", id)
}

func (m *mockEventService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Event, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Event{}, 0, nil
}

func (m *mockEventService) Update(ctx context.Context, id string, update *model.EventUpdate) (*model.Event, error) {
	return &model.Event{ID: id}, nil
}

func (m *mockEventService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func newRouter(t *testing.T, svc *mockEventService) (*httprouter.Router, *auth.Issuer) {
	t.Helper()
	log := logger.Discard()
	issuer := auth.NewIssuer("events-handler-secret-0123456789", time.Hour)
	router := httprouter.New()
	NewEventHandler(svc, middleware.NewGuard(issuer, log), log).RegisterRoutes(router)
	return router, issuer
}

func TestGetAll_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockEventService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Event, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Event{{ID: "e-1"}}, 7, nil
		},
	}
	router, _ := newRouter(t, svc)

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{"defaults", "", http.StatusOK},
		{"explicit", "?limit=5&offset=2", http.StatusOK},
		{"invalid limit", "?limit=abc", http.StatusBadRequest},
		{"invalid offset", "?offset=xyz", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events"+tt.query, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=5&offset=2", nil))
	var body httputil.PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotLimit != 5 || gotOffset != 2 || body.TotalCount != 7 {
		t.Errorf("limit=%d offset=%d total=%d", gotLimit, gotOffset, body.TotalCount)
	}
}

func TestCreate_RequiresAdmin(t *testing.T) {
	var gotActor auth.Identity
	svc := &mockEventService{
		createFunc: func(ctx context.Context, actor auth.Identity, event *model.Event) (*model.Event, error) {
			gotActor = actor
			event.ID = "e-1"
			return event, nil
		},
	}
	router, issuer := newRouter(t, svc)
	adminToken, _, _ := issuer.Issue("admin-1", model.RoleAdmin)
	customerToken, _, _ := issuer.Issue("user-1", model.RoleCustomer)

	body := `{"title":"Go","description":"d","location":"l","thumbnail":"https://x.io/a.png","date":"2030-01-01T10:00:00Z","capacity":5,"price":0}`
	for token, want := range map[string]int{
		"":            http.StatusUnauthorized,
		customerToken: http.StatusForbidden,
		adminToken:    http.StatusCreated,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
		}
	}
	if gotActor.UserID != "admin-1" {
		t.Errorf("actor = %+v", gotActor)
	}
}

func TestDelete_Conflict(t *testing.T) {
	svc := &mockEventService{
		deleteFunc: func(ctx context.Context, id string) error {
			if id == "busy" {
				return apperrors.Conflict("Event has 2 active booking(s)")
			}
			return nil
		},
	}
	router, issuer := newRouter(t, svc)
	token, _, _ := issuer.Issue("admin-1", model.RoleAdmin)

	for id, want := range map[string]int{"busy": http.StatusConflict, "idle": http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/id/"+id, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", id, rec.Code, want)
		}
	}
}

func TestGetByID_NotFound(t *testing.T) {
	router, _ := newRouter(t, &mockEventService{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/id/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
