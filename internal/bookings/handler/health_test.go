package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventa/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func TestReady(t *testing.T) {
	ok := HealthCheck{Name: "mongo", Ping: func(ctx context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Ping: func(ctx context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name     string
		checks   []HealthCheck
		wantCode int
		wantDeps map[string]string
	}{
		{"all up", []HealthCheck{ok}, http.StatusOK, map[string]string{"mongo": "ok"}},
		{"one down", []HealthCheck{ok, down}, http.StatusServiceUnavailable, map[string]string{"mongo": "ok", "redis": "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(logger.Discard(), tt.checks...)
			router := httprouter.New()
			h.RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var body HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for name, want := range tt.wantDeps {
				if body.Dependencies[name] != want {
					t.Errorf("%s = %q, want %q", name, body.Dependencies[name], want)
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(logger.Discard())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
