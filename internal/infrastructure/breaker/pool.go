package breaker

import "sync"

// Pool hands out one Breaker per tenant so a degraded gateway for one tenant
// never fails fast calls for another.
type Pool struct {
	mu       sync.Mutex
	cfg      Config
	byTenant map[string]*Breaker
}

// NewPool creates a Pool applying cfg to every breaker it creates
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg, byTenant: make(map[string]*Breaker)}
}

// For returns the breaker for the tenant, creating it on first use
func (p *Pool) For(tenantID string) *Breaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.byTenant[tenantID]
	if !ok {
		b = New(p.cfg)
		p.byTenant[tenantID] = b
	}
	return b
}
