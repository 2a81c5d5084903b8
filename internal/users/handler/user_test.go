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
	"eventa/pkg/logger"
	"eventa/pkg/middleware"
	"eventa/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockUserService struct {
	registerFunc func(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	loginFunc    func(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
}

func (m *mockUserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return &model.User{ID: "user-1", Email: req.Email, Role: model.RoleCustomer}, nil
}

func (m *mockUserService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return &model.TokenResponse{Token: "t"}, nil
}

func (m *mockUserService) Me(ctx context.Context, actor auth.Identity) (*model.User, error) {
	return &model.User{ID: actor.UserID, Role: actor.Role, PasswordHash: "$2a$hash"}, nil
}

func setup(t *testing.T, svc *mockUserService) (*httprouter.Router, *auth.Issuer) {
	t.Helper()
	log := logger.Discard()
	issuer := auth.NewIssuer("users-handler-secret-0123456789", time.Hour)
	router := httprouter.New()
	NewUserHandler(svc, middleware.NewGuard(issuer, log), log).RegisterRoutes(router)
	return router, issuer
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	router, _ := setup(t, &mockUserService{})

	rec := post(router, "/auth/register", `{"first_name":"Ada","last_name":"L","email":"ada@example.com","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["id"] != "user-1" || body.Data["role"] != model.RoleCustomer {
		t.Errorf("data = %v", body.Data)
	}
	if _, leaked := body.Data["password_hash"]; leaked {
		t.Error("password hash must not be exposed")
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockUserService{
		registerFunc: func(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
			return nil, apperrors.Conflict("Email already registered")
		},
	}
	router, _ := setup(t, svc)

	rec := post(router, "/auth/register", `{"first_name":"Ada","last_name":"L","email":"ada@example.com","password":"secret1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockUserService{
		loginFunc: func(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		},
	}
	router, _ := setup(t, svc)

	rec := post(router, "/auth/login", `{"email":"ada@example.com","password":"nope123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMe(t *testing.T) {
	router, issuer := setup(t, &mockUserService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	token, _, _ := issuer.Issue("user-7", model.RoleCustomer)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "$2a$hash") {
		t.Error("password hash must not be exposed")
	}
	if !strings.Contains(rec.Body.String(), `"user-7"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
