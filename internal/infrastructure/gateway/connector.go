// Package gateway implements the remote function connector over the REST
// gateway exposed by each tenant's ERP system.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

// DefaultMaxResponseSize caps gateway response bodies at 10MB
const DefaultMaxResponseSize = 10 * 1024 * 1024

// Options holds connection behavior shared by all tenants
type Options struct {
	Timeout         time.Duration
	MaxResponseSize int64
}

// RESTConnector implements sap.Connector against one tenant's gateway. The
// gateway exposes remote function modules as POST /rfc/{function} and table
// reads as POST /read_table, both JSON in and out.
type RESTConnector struct {
	conn            tenant.Connection
	httpClient      *http.Client
	maxResponseSize int64
}

// NewRESTConnector creates a connector for the given tenant connection
func NewRESTConnector(conn tenant.Connection, opts Options) *RESTConnector {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxResponseSize == 0 {
		opts.MaxResponseSize = DefaultMaxResponseSize
	}
	return &RESTConnector{
		conn:            conn,
		httpClient:      &http.Client{Timeout: opts.Timeout},
		maxResponseSize: opts.MaxResponseSize,
	}
}

// CallFunction invokes a remote function module with the given parameters
func (c *RESTConnector) CallFunction(ctx context.Context, name string, params sap.Params) (sap.FunctionResult, error) {
	if params == nil {
		params = sap.Params{}
	}
	body, err := c.doRequest(ctx, "/rfc/"+name, params)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	var result sap.FunctionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("call %s: failed to parse response: %w", name, err)
	}
	return result, nil
}

// ReadTable reads rows from a remote table through the gateway
func (c *RESTConnector) ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error) {
	payload := map[string]any{
		"table":    table,
		"fields":   fields,
		"where":    where,
		"max_rows": maxRows,
	}
	body, err := c.doRequest(ctx, "/read_table", payload)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}

	var resp struct {
		Rows []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("read table %s: failed to parse response: %w", table, err)
	}
	return resp.Rows, nil
}

func (c *RESTConnector) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conn.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client", c.conn.Client)
	req.Header.Set("X-Language", c.conn.Language)
	req.SetBasicAuth(c.conn.User, c.conn.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", shared.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway rejected request: HTTP %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ sap.Connector = (*RESTConnector)(nil)
