// ABOUTME: HTTP middleware that turns a Bearer Authorization header into an identity
// ABOUTME: The identity travels in the request context for downstream handlers

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithIdentity returns a context carrying the authenticated user identity.
func WithIdentity(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the authenticated identity from the context.
func IdentityFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return id, ok
}

// Middleware validates the Authorization header and injects the identity
// into the request context. Requests without a valid bearer token get a
// 401 with a JSON error body.
func Middleware(validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, CredentialTypeBearer+" ") {
				unauthorized(w, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(header, CredentialTypeBearer+" ")

			id, err := validator.Validate(r.Context(), Credential{
				Type:  CredentialTypeBearer,
				Token: token,
			})
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
