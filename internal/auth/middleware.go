package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const usernameKey contextKey = "facility_username"

const credentialsDetail = "Could not validate credentials"

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (m *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			unauthorized(w)
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), claims.Subject)))
	})
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok && username != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respondError(w, http.StatusUnauthorized, credentialsDetail)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]any{"detail": detail})
}
