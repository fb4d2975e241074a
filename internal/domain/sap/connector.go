package sap

import "context"

// Standard transaction control functions of the remote system
const (
	FunctionCommit   = "BAPI_TRANSACTION_COMMIT"
	FunctionRollback = "BAPI_TRANSACTION_ROLLBACK"
)

// Connector invokes named remote functions against the transactional backend.
// Implementations are expected to be safe for concurrent use; the tenant whose
// connection is used is taken from the context (see the tenant package).
type Connector interface {
	// CallFunction invokes a named remote function with the given parameters
	// and returns its structured result. A non-nil error means the call never
	// produced a result (transport failure, timeout); remote-reported errors
	// travel inside the result's RETURN table.
	CallFunction(ctx context.Context, name string, params Params) (FunctionResult, error)

	// ReadTable reads rows from a remote table with an optional WHERE clause
	ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error)
}

// Commit issues the implicit-transaction commit for the current session
func Commit(ctx context.Context, c Connector) error {
	_, err := c.CallFunction(ctx, FunctionCommit, Params{"WAIT": "X"})
	return err
}

// Rollback discards the current implicit transaction
func Rollback(ctx context.Context, c Connector) error {
	_, err := c.CallFunction(ctx, FunctionRollback, nil)
	return err
}
