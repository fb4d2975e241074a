package tenant

import "context"

type contextKey struct{}

// Context identifies the tenant an operation runs on behalf of. It travels on
// the request context rather than in any shared mutable state, so concurrent
// requests for different tenants can never observe each other.
type Context struct {
	TenantID    string `json:"tenant_id"`
	CompanyCode string `json:"company_code"`
	UserID      string `json:"user_id"`
}

// WithContext attaches the tenant context to ctx
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant context. The second return is false when no
// tenant was resolved for this request.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}
