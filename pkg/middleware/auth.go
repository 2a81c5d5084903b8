package middleware

import (
	"net/http"
	"slices"
	"strings"

	"eventa/pkg/auth"
	apperrors "eventa/pkg/errors"
	"eventa/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// TokenResolver turns a bearer token into the caller's identity.
type TokenResolver interface {
	Resolve(raw string) (auth.Identity, error)
}

// Guard wraps route handlers with authentication and role checks.
type Guard struct {
	resolver TokenResolver
	log      *logger.Logger
}

func NewGuard(resolver TokenResolver, log *logger.Logger) *Guard {
	return &Guard{resolver: resolver, log: log}
}

// Authenticated requires a valid bearer token and stores the identity in
// the request context.
func (g *Guard) Authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raw, ok := bearerToken(r)
		if !ok {
			reject(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authentication required")
			return
		}

		identity, err := g.resolver.Resolve(raw)
		if err != nil {
			g.log.Warn("Rejected bearer token",
				"request_id", RequestIDFrom(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			reject(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), identity)), ps)
	}
}

// Role authenticates the caller and requires one of roles.
func (g *Guard) Role(next httprouter.Handle, roles ...string) httprouter.Handle {
	return g.Authenticated(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, _ := auth.IdentityFrom(r.Context())
		if !slices.Contains(roles, identity.Role) {
			g.log.Warn("Role not permitted",
				"request_id", RequestIDFrom(r.Context()),
				"path", r.URL.Path,
				"user_id", identity.UserID,
				"role", identity.Role,
			)
			reject(w, http.StatusForbidden, apperrors.CodeForbidden, "You do not have permission to perform this action")
			return
		}
		next(w, r, ps)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
