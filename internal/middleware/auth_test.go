package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// =============================================================================
// Service Token Auth Tests
// =============================================================================

func TestServiceAuth_ValidToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mw := NewServiceAuthMiddleware(map[string]string{"backend": "token-abc"}, logger)

	var gotCaller string
	handler := mw.RequireService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = Caller(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotCaller != "backend" {
		t.Errorf("expected caller %q, got %q", "backend", gotCaller)
	}
}

func TestServiceAuth_Rejections(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mw := NewServiceAuthMiddleware(map[string]string{"backend": "token-abc"}, logger)
	handler := mw.RequireService(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer wrong"},
		{"wrong scheme", "Basic token-abc"},
		{"bare token", "token-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error body, got content type %q", ct)
			}
		})
	}
}

func TestServiceAuth_EmptyTokenNotAccepted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	// A caller configured with an empty token must not open the door
	mw := NewServiceAuthMiddleware(map[string]string{"backend": ""}, logger)
	handler := mw.RequireService(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// =============================================================================
// Admin Token Auth Tests
// =============================================================================

func TestAdminAuth_ValidToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	mw := NewAdminAuthMiddleware(string(hash), logger)
	handler := mw.RequireAdmin(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAdminAuth_InvalidToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	mw := NewAdminAuthMiddleware(string(hash), logger)
	handler := mw.RequireAdmin(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer guess")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAdminAuth_NotConfigured(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	mw := NewAdminAuthMiddleware("", logger)
	handler := mw.RequireAdmin(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when no admin token configured, got %d", rec.Code)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"no token", "Bearer", ""},
		{"basic scheme", "Basic abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
