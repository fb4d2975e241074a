package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

func testConnection(baseURL string) tenant.Connection {
	return tenant.Connection{
		TenantID: "acme-prod",
		BaseURL:  baseURL,
		Client:   "100",
		Language: "EN",
		User:     "svc_user",
		Password: "s3cret",
	}
}

func TestCallFunctionSendsParamsAndAuth(t *testing.T) {
	var gotPath, gotClient string
	var gotParams sap.Params

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClient = r.Header.Get("X-Client")
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "svc_user", user)
		assert.Equal(t, "s3cret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotParams))
		json.NewEncoder(w).Encode(map[string]any{
			"RETURN": []map[string]any{{"TYPE": "S", "MESSAGE": "Document posted"}},
		})
	}))
	defer server.Close()

	c := NewRESTConnector(testConnection(server.URL), Options{})
	result, err := c.CallFunction(context.Background(), "BAPI_ACC_DOCUMENT_POST", sap.Params{"COMP_CODE": "1000"})

	require.NoError(t, err)
	assert.Equal(t, "/rfc/BAPI_ACC_DOCUMENT_POST", gotPath)
	assert.Equal(t, "100", gotClient)
	assert.Equal(t, "1000", gotParams["COMP_CODE"])
	assert.False(t, result.ParsedReturn().HasErrors())
}

func TestCallFunctionGatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewRESTConnector(testConnection(server.URL), Options{})
	_, err := c.CallFunction(context.Background(), "BAPI_PO_CREATE1", nil)
	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)
}

func TestCallFunctionUnreachableHost(t *testing.T) {
	c := NewRESTConnector(testConnection("http://127.0.0.1:1"), Options{})
	_, err := c.CallFunction(context.Background(), "BAPI_PO_CREATE1", nil)
	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)
}

func TestCallFunctionClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown function"}`, http.StatusNotFound)
	}))
	defer server.Close()

	c := NewRESTConnector(testConnection(server.URL), Options{})
	_, err := c.CallFunction(context.Background(), "NOT_A_FUNCTION", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestReadTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/read_table", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "LFA1", req["table"])

		json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]string{
				{"LIFNR": "0000100234", "NAME1": "Acme Industrial"},
			},
		})
	}))
	defer server.Close()

	c := NewRESTConnector(testConnection(server.URL), Options{})
	rows, err := c.ReadTable(context.Background(), "LFA1", []string{"LIFNR", "NAME1"}, "LIFNR = '0000100234'", 1)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme Industrial", rows[0]["NAME1"])
}

func TestFactoryCachesPerTenant(t *testing.T) {
	registry := tenant.NewRegistry([]tenant.Connection{
		{TenantID: "acme-prod", BaseURL: "https://gw.acme.example"},
	})
	f := NewFactory(registry, Options{})

	c1, err := f.ForTenant(context.Background(), "acme-prod")
	require.NoError(t, err)
	c2, err := f.ForTenant(context.Background(), "acme-prod")
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	_, err = f.ForTenant(context.Background(), "unknown")
	assert.ErrorIs(t, err, shared.ErrUnknownTenant)
}
