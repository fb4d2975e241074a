// Package tenant maps tenant identifiers to gateway connection settings and
// carries the active tenant through the request context.
package tenant

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sapflow/backend/internal/domain/shared"
)

// Connection holds everything needed to reach one tenant's gateway. User and
// Password are resolved from the environment at registration time so that
// credentials never live in config files.
type Connection struct {
	TenantID    string `json:"tenant_id"`
	BaseURL     string `json:"base_url"`
	Client      string `json:"client"`
	SystemID    string `json:"system_id"`
	CompanyCode string `json:"company_code"`
	Language    string `json:"language"`
	User        string `json:"-"`
	Password    string `json:"-"`
}

// Registry is an immutable-after-construction lookup of tenant connections
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]Connection
}

// NewRegistry builds a Registry from the configured connections. Credentials
// are read from <TENANT>_USER and <TENANT>_PASSWORD environment variables,
// with the tenant id upper-cased and dashes mapped to underscores.
func NewRegistry(conns []Connection) *Registry {
	r := &Registry{tenants: make(map[string]Connection, len(conns))}
	for _, c := range conns {
		if c.Language == "" {
			c.Language = "EN"
		}
		prefix := envPrefix(c.TenantID)
		if c.User == "" {
			c.User = os.Getenv(prefix + "_USER")
		}
		if c.Password == "" {
			c.Password = os.Getenv(prefix + "_PASSWORD")
		}
		r.tenants[c.TenantID] = c
	}
	return r
}

// Resolve returns the connection for the tenant, or ErrUnknownTenant when the
// id was never registered.
func (r *Registry) Resolve(tenantID string) (Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.tenants[tenantID]
	if !ok {
		return Connection{}, fmt.Errorf("resolve tenant %q: %w", tenantID, shared.ErrUnknownTenant)
	}
	return c, nil
}

// Register adds or replaces a tenant connection at runtime
func (r *Registry) Register(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Language == "" {
		c.Language = "EN"
	}
	r.tenants[c.TenantID] = c
}

// IDs lists the registered tenant identifiers
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}

func envPrefix(tenantID string) string {
	return strings.ToUpper(strings.ReplaceAll(tenantID, "-", "_"))
}
