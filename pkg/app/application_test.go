package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventa/pkg/config"
	"eventa/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type routes func(router *httprouter.Router)

func (f routes) RegisterRoutes(router *httprouter.Router) { f(router) }

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		IdempotencyStore:  config.IdempotencyMemory,
		MaxRequestSize:    64,
		Log:               logger.Discard(),
	}
}

func TestSetApp_Routing(t *testing.T) {
	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.POST("/api/v1/echo", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	other := routes(func(r *httprouter.Router) {
		r.GET("/api/v1/other", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusAccepted)
		})
	})

	a := NewApplication(testConfig())
	a.SetApp(health, api, other)
	defer a.rateLimiter.Stop()
	defer a.idempotencyStore.Stop()
	h := a.Handler()

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"api json", http.MethodPost, "/api/v1/echo", `{}`, "application/json", http.StatusCreated},
		{"api wrong content type", http.MethodPost, "/api/v1/echo", `x`, "text/plain", http.StatusUnsupportedMediaType},
		{"api oversized", http.MethodPost, "/api/v1/echo", `{"k":"` + strings.Repeat("a", 100) + `"}`, "application/json", http.StatusRequestEntityTooLarge},
		{"second handler", http.MethodGet, "/api/v1/other", "", "", http.StatusAccepted},
		{"unknown", http.MethodGet, "/nope", "", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", tt.contentType)
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("every response should carry a request id")
			}
		})
	}
}
