package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHttpClient_POSTSendsTokenAndBody(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := NewHttpClient(server.URL+"/", "tok-123", time.Second)
	resp, err := c.POST(context.Background(), "/api/v1/internal/bookings/purge", map[string]int{"days": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
	if gotBody["days"] != 2 {
		t.Errorf("expected days=2, got %v", gotBody)
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"Event is full","code":"EVENT_FULL"}`, "Event is full"},
		{"message field", `{"message":"Server error"}`, "Server error"},
		{"code only", `{"code":"FORBIDDEN"}`, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetErrorMessage(&Response{Body: []byte(tt.body)})
			if got != tt.want {
				t.Errorf("GetErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWaitForHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHttpClient(server.URL, "", time.Second)
	if err := c.WaitForHealthy(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("expected healthy, got: %v", err)
	}
}
