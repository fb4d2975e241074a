package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sapflow/backend/internal/domain/shared"
)

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry([]Connection{
		{TenantID: "acme-prod", BaseURL: "https://gw.acme.example", Client: "100", CompanyCode: "1000"},
	})

	c, err := r.Resolve("acme-prod")
	assert.NoError(t, err)
	assert.Equal(t, "https://gw.acme.example", c.BaseURL)
	assert.Equal(t, "EN", c.Language, "language defaults to EN")
}

func TestRegistryResolveUnknownTenant(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Resolve("nobody")
	assert.ErrorIs(t, err, shared.ErrUnknownTenant)
}

func TestRegistryCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("ACME_PROD_USER", "svc_user")
	t.Setenv("ACME_PROD_PASSWORD", "s3cret")

	r := NewRegistry([]Connection{{TenantID: "acme-prod", BaseURL: "https://gw.acme.example"}})

	c, err := r.Resolve("acme-prod")
	assert.NoError(t, err)
	assert.Equal(t, "svc_user", c.User)
	assert.Equal(t, "s3cret", c.Password)
}

func TestRegistryRegisterAtRuntime(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Connection{TenantID: "new-tenant", BaseURL: "https://gw.new.example"})

	c, err := r.Resolve("new-tenant")
	assert.NoError(t, err)
	assert.Equal(t, "https://gw.new.example", c.BaseURL)
	assert.ElementsMatch(t, []string{"new-tenant"}, r.IDs())
}

func TestTenantContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), Context{
		TenantID:    "acme-prod",
		CompanyCode: "1000",
		UserID:      "u-42",
	})

	tc, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acme-prod", tc.TenantID)
	assert.Equal(t, "1000", tc.CompanyCode)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
