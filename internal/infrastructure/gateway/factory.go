package gateway

import (
	"context"
	"sync"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

// Factory hands out one connector per tenant, created lazily from the tenant
// registry and cached for reuse.
type Factory struct {
	registry *tenant.Registry
	opts     Options

	mu         sync.Mutex
	connectors map[string]*RESTConnector
}

// NewFactory creates a connector factory backed by the tenant registry
func NewFactory(registry *tenant.Registry, opts Options) *Factory {
	return &Factory{
		registry:   registry,
		opts:       opts,
		connectors: make(map[string]*RESTConnector),
	}
}

// ForTenant returns the connector for the tenant id, resolving the connection
// through the registry on first use.
func (f *Factory) ForTenant(ctx context.Context, tenantID string) (sap.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.connectors[tenantID]; ok {
		return c, nil
	}

	conn, err := f.registry.Resolve(tenantID)
	if err != nil {
		return nil, err
	}

	c := NewRESTConnector(conn, f.opts)
	f.connectors[tenantID] = c
	return c, nil
}
