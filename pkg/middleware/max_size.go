package middleware

import (
	"net/http"

	apperrors "eventa/pkg/errors"
)

// MaxRequestSize rejects declared oversized bodies up front and caps the
// rest with http.MaxBytesReader.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				reject(w, http.StatusRequestEntityTooLarge, apperrors.CodeBadRequest, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
