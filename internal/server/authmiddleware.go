package server

import (
	"context"
	"net/http"

	"github.com/tjfontaine/evalgate/internal/auth"
	"github.com/tjfontaine/evalgate/internal/tenant"
)

// tenantContextKey is the context key for tenant information.
type tenantContextKey struct{}

// AuthMiddleware validates API keys and injects tenant context.
// The API key is extracted from the Authorization header (Bearer token
// format). Every route behind this middleware is tenant-scoped.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				http.Error(w, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			t, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			AddLogField(r.Context(), "tenant_id", t.ID)

			ctx := context.WithValue(r.Context(), tenantContextKey{}, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenant retrieves the tenant from context.
// Returns nil if no tenant is set.
func GetTenant(ctx context.Context) *tenant.Tenant {
	if t, ok := ctx.Value(tenantContextKey{}).(*tenant.Tenant); ok {
		return t
	}
	return nil
}
