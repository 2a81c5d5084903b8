package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	token, exp, err := issuer.Issue("user-1", "customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry should be in the future, got %s", exp)
	}

	id, err := issuer.Resolve(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "user-1" || id.Role != "customer" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestIssuer_RejectsBadTokens(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	other := NewIssuer("ffffffffffffffffffffffffffffffff", time.Hour)

	foreign, _, err := other.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := NewIssuer(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue("user-1", "customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"expired", stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Resolve(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Error("empty context should carry no identity")
	}

	ctx := WithIdentity(context.Background(), Identity{UserID: "u", Role: "admin"})
	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID != "u" || id.Role != "admin" {
		t.Errorf("unexpected identity: %+v (ok=%v)", id, ok)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !VerifyPassword(hash, "s3cret-pass") {
		t.Error("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}
