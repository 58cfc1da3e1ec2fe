package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tjfontaine/evalgate/internal/auth"
	"github.com/tjfontaine/evalgate/internal/tenant"
)

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if captured == "" {
		t.Error("request ID not set in context")
	}
	if rec.Header().Get("X-Request-ID") != captured {
		t.Errorf("X-Request-ID header = %q, want %q", rec.Header().Get("X-Request-ID"), captured)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "tenant_id", "acme")
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/evals/ingest", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestTimeoutMiddleware_CancelsContext(t *testing.T) {
	handler := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			w.WriteHeader(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504 (context should cancel)", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	key := "eval-live-key"
	authenticator := auth.NewAuthenticator([]*tenant.Tenant{
		{ID: "acme", APIKeys: []tenant.APIKey{{KeyHash: auth.HashAPIKey(key)}}},
	})

	var gotTenant *tenant.Tenant
	handler := AuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = GetTenant(r.Context())
	}))

	// Valid key injects the tenant.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/evals", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotTenant == nil || gotTenant.ID != "acme" {
		t.Errorf("tenant = %v, want acme", gotTenant)
	}

	// Missing header is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/evals", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without auth = %d, want 401", rec.Code)
	}

	// Wrong key is rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/evals", nil)
	req.Header.Set("Authorization", "Bearer not-the-key")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong key = %d, want 401", rec.Code)
	}
}
