// Package middleware contains HTTP middleware for the AnimatePDF backend.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const callerContextKey contextKey = "caller"

// Caller retrieves the authenticated service caller name from the request
// context. Returns empty string if the request was not authenticated.
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(callerContextKey).(string)
	return caller
}

func setCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// =============================================================================
// Service Token Auth
// =============================================================================

// ServiceAuthMiddleware authenticates internal callers by bearer token.
// The product backend and other internal services each hold their own token
// so access can be revoked per caller.
type ServiceAuthMiddleware struct {
	tokens map[string]string // token value -> caller name
	logger *slog.Logger
}

// NewServiceAuthMiddleware creates a ServiceAuthMiddleware from a token table.
// The map keys are caller names, values are their bearer tokens.
func NewServiceAuthMiddleware(tokens map[string]string, logger *slog.Logger) *ServiceAuthMiddleware {
	byToken := make(map[string]string, len(tokens))
	for caller, token := range tokens {
		if token != "" {
			byToken[token] = caller
		}
	}
	return &ServiceAuthMiddleware{
		tokens: byToken,
		logger: logger,
	}
}

// RequireService returns middleware that rejects requests without a valid
// service bearer token.
func (m *ServiceAuthMiddleware) RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, "missing bearer token")
			return
		}

		caller, ok := m.lookupToken(token)
		if !ok {
			m.logger.Warn("rejected request with invalid service token",
				"path", r.URL.Path,
				"ip", getClientIP(r),
			)
			writeAuthError(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(setCaller(r.Context(), caller)))
	})
}

// lookupToken finds the caller for a token using constant-time comparison.
func (m *ServiceAuthMiddleware) lookupToken(token string) (string, bool) {
	for known, caller := range m.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(known)) == 1 {
			return caller, true
		}
	}
	return "", false
}

// =============================================================================
// Admin Token Auth
// =============================================================================

// AdminAuthMiddleware authenticates administrative requests against a
// bcrypt-hashed token. Only the hash is held in configuration.
type AdminAuthMiddleware struct {
	tokenHash []byte
	logger    *slog.Logger
}

// NewAdminAuthMiddleware creates an AdminAuthMiddleware.
// tokenHash is the bcrypt hash of the admin bearer token. When empty, all
// admin requests are rejected.
func NewAdminAuthMiddleware(tokenHash string, logger *slog.Logger) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		tokenHash: []byte(tokenHash),
		logger:    logger,
	}
}

// RequireAdmin returns middleware that rejects requests without the admin
// bearer token.
func (m *AdminAuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.tokenHash) == 0 {
			m.logger.Error("admin endpoint hit but no admin token configured")
			writeAuthError(w, "admin access not configured")
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, "missing bearer token")
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.tokenHash, []byte(token)); err != nil {
			m.logger.Warn("rejected request with invalid admin token",
				"path", r.URL.Path,
				"ip", getClientIP(r),
			)
			writeAuthError(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(setCaller(r.Context(), "admin")))
	})
}

// =============================================================================
// Helpers
// =============================================================================

// bearerToken extracts the token from the Authorization header.
// Returns empty string if the header is absent or malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// writeAuthError sends a 401 JSON error response.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
