package tenant

import (
	"github.com/tjfontaine/evalgate/internal/config"
)

// Tenant represents an account namespace owning evaluation records and
// an admission policy. All data and policy lookups are scoped to one
// tenant.
type Tenant struct {
	ID      string
	Name    string
	APIKeys []APIKey
}

// APIKey represents an API key for a tenant.
type APIKey struct {
	KeyHash     string
	Description string
}

// Registry manages tenant instances.
type Registry struct {
	tenants map[string]*Tenant
}

// NewRegistry creates a new tenant registry.
func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[string]*Tenant),
	}
}

// LoadTenants loads tenants from configuration.
func (r *Registry) LoadTenants(configs []config.TenantConfig) []*Tenant {
	var tenants []*Tenant

	for _, cfg := range configs {
		apiKeys := make([]APIKey, len(cfg.APIKeys))
		for i, keyCfg := range cfg.APIKeys {
			apiKeys[i] = APIKey{
				KeyHash:     keyCfg.KeyHash,
				Description: keyCfg.Description,
			}
		}

		t := &Tenant{
			ID:      cfg.ID,
			Name:    cfg.Name,
			APIKeys: apiKeys,
		}

		tenants = append(tenants, t)
		r.tenants[cfg.ID] = t
	}

	return tenants
}

// GetTenant retrieves a tenant by ID.
func (r *Registry) GetTenant(id string) (*Tenant, bool) {
	t, ok := r.tenants[id]
	return t, ok
}
