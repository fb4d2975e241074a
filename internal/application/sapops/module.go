// Package sapops implements the transactional discipline every domain module
// posts through: circuit-breaker-wrapped remote calls, commit/rollback
// handling, RETURN message parsing and transaction recording.
package sapops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/alerting"
	"github.com/sapflow/backend/internal/infrastructure/breaker"
	"github.com/sapflow/backend/internal/infrastructure/logger"
	"github.com/sapflow/backend/internal/infrastructure/telemetry"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

// ConnectorProvider resolves the gateway connector for a tenant
type ConnectorProvider interface {
	ForTenant(ctx context.Context, tenantID string) (sap.Connector, error)
}

// AuditSink receives persisted audit actions, fire-and-forget
type AuditSink interface {
	LogAction(ctx context.Context, module, action string, details map[string]any)
}

// Deps bundles the collaborators shared by all domain modules
type Deps struct {
	Connectors     ConnectorProvider
	Breakers       *breaker.Pool
	Metrics        *telemetry.PostingMetrics
	Audit          AuditSink
	Alerts         alerting.Notifier
	Idempotency    shared.IdempotencyStore
	IdempotencyCfg shared.IdempotencyConfig
}

// Module is the transactional base each domain module embeds. It owns its own
// bounded transaction recorder; durable audit storage goes through the sink.
type Module struct {
	name     string
	deps     Deps
	recorder *sap.Recorder
}

// NewModule creates a transactional module with the given name (FI-AP, MM-PO,
// SD-SO).
func NewModule(name string, deps Deps) *Module {
	if deps.Alerts == nil {
		deps.Alerts = alerting.NopNotifier{}
	}
	return &Module{
		name:     name,
		deps:     deps,
		recorder: sap.NewRecorder(sap.DefaultRecorderCapacity),
	}
}

// Name returns the module identifier
func (m *Module) Name() string { return m.name }

// History returns the module's recorded transactions, optionally filtered by
// status.
func (m *Module) History(filter sap.TransactionStatus) []*sap.TransactionRecord {
	return m.recorder.History(filter)
}

// CompanyCode returns the company code of the request's tenant, defaulting to
// 1000 when no tenant context is present (tests, tooling).
func (m *Module) CompanyCode(ctx context.Context) string {
	if tc, ok := tenant.FromContext(ctx); ok && tc.CompanyCode != "" {
		return tc.CompanyCode
	}
	return "1000"
}

func (m *Module) connector(ctx context.Context) (sap.Connector, string, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, "", fmt.Errorf("no tenant resolved for request: %w", shared.ErrUnknownTenant)
	}
	conn, err := m.deps.Connectors.ForTenant(ctx, tc.TenantID)
	if err != nil {
		return nil, "", err
	}
	return conn, tc.TenantID, nil
}

// Call invokes a remote function under the tenant's circuit breaker
func (m *Module) Call(ctx context.Context, function string, params sap.Params) (sap.FunctionResult, error) {
	conn, tenantID, err := m.connector(ctx)
	if err != nil {
		return nil, err
	}
	return m.callThroughBreaker(ctx, conn, tenantID, function, params)
}

func (m *Module) callThroughBreaker(ctx context.Context, conn sap.Connector, tenantID, function string, params sap.Params) (sap.FunctionResult, error) {
	br := m.deps.Breakers.For(tenantID)
	wasOpen := br.State() == breaker.StateOpen

	var result sap.FunctionResult
	err := br.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = conn.CallFunction(ctx, function, params)
		return callErr
	})
	if err != nil {
		if errors.Is(err, shared.ErrCircuitOpen) {
			logger.L(ctx).Warn("circuit open, failing fast",
				zap.String("module", m.name),
				zap.String("function", function),
			)
			return nil, err
		}
		if !wasOpen && br.State() == breaker.StateOpen {
			m.onBreakerOpened(ctx, tenantID, function)
		}
		return nil, err
	}
	return result, nil
}

func (m *Module) onBreakerOpened(ctx context.Context, tenantID, function string) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordBreakerOpened(ctx, tenantID)
	}
	m.deps.Alerts.Notify(ctx, alerting.Alert{
		Severity: alerting.SeverityCritical,
		Title:    "circuit breaker opened",
		Message:  fmt.Sprintf("gateway calls for tenant %s are now failing fast", tenantID),
		TenantID: tenantID,
		Module:   m.name,
		Details:  map[string]any{"function": function},
	})
}

// ReadTable reads remote table rows under the tenant's circuit breaker
func (m *Module) ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error) {
	conn, tenantID, err := m.connector(ctx)
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	err = m.deps.Breakers.For(tenantID).Execute(ctx, func(ctx context.Context) error {
		var readErr error
		rows, readErr = conn.ReadTable(ctx, table, fields, where, maxRows)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PostingOp describes one document posting to run under transaction
// discipline.
type PostingOp struct {
	Type        string     // transaction type, e.g. VENDOR_INVOICE
	Function    string     // remote function to invoke
	Params      sap.Params // function parameters
	DocumentKey string     // export parameter carrying the document number
	NaturalKey  string     // optional dedup key; empty disables the check
	Payload     map[string]any
}

// PostResult is the explicit outcome of a posting attempt
type PostResult struct {
	Success        bool               `json:"success"`
	DocumentNumber string             `json:"document_number,omitempty"`
	TransactionID  string             `json:"transaction_id"`
	Messages       sap.ParsedMessages `json:"messages"`
}

// ExecutePosting runs one posting under full transaction discipline: dedup
// pre-check, breaker-wrapped call, RETURN parsing, rollback on error
// severity, commit on success, transaction record in a terminal state.
// On remote rejection the returned PostResult carries the parsed messages
// alongside the error.
func (m *Module) ExecutePosting(ctx context.Context, op PostingOp) (*PostResult, error) {
	conn, tenantID, err := m.connector(ctx)
	if err != nil {
		return nil, err
	}

	if op.NaturalKey != "" && m.deps.IdempotencyCfg.Enabled && m.deps.Idempotency != nil {
		posted, err := m.deps.Idempotency.IsPosted(ctx, op.NaturalKey)
		if err != nil {
			logger.L(ctx).Warn("idempotency check failed, proceeding without it",
				zap.String("module", m.name), zap.Error(err))
		} else if posted {
			return nil, fmt.Errorf("%s already posted: %w", op.NaturalKey, shared.ErrDuplicateDocument)
		}
	}

	createdBy := logger.GetUserID(ctx)
	if createdBy == "" {
		createdBy = "AUTOMATION"
	}
	record := sap.NewTransactionRecord(m.name, op.Type, createdBy, op.Payload)
	start := time.Now()

	result, err := m.callThroughBreaker(ctx, conn, tenantID, op.Function, op.Params)
	if err != nil {
		m.finishFailed(ctx, record, tenantID, op, err.Error())
		return nil, err
	}

	parsed := result.ParsedReturn()
	if parsed.HasErrors() {
		m.rollback(ctx, conn, op.Function)
		m.finishFailed(ctx, record, tenantID, op, fmt.Sprintf("remote errors: %v", parsed.Errors))
		if m.deps.Metrics != nil {
			m.deps.Metrics.RecordRejected(ctx, m.name, tenantID)
		}
		return &PostResult{
				Success:       false,
				TransactionID: record.ID.String(),
				Messages:      parsed,
			}, shared.NewRemoteDocumentError(m.name, op.Function, parsed.Errors)
	}

	if err := sap.Commit(ctx, conn); err != nil {
		m.rollback(ctx, conn, op.Function)
		m.finishFailed(ctx, record, tenantID, op, fmt.Sprintf("commit failed: %v", err))
		return nil, fmt.Errorf("commit after %s failed: %w", op.Function, err)
	}

	docNumber := result.String(op.DocumentKey)
	record.Complete(docNumber)
	m.recorder.Record(record)

	if op.NaturalKey != "" && m.deps.IdempotencyCfg.Enabled && m.deps.Idempotency != nil {
		if _, err := m.deps.Idempotency.MarkPosted(ctx, op.NaturalKey, m.deps.IdempotencyCfg.TTL); err != nil {
			logger.L(ctx).Warn("failed to record idempotency key",
				zap.String("module", m.name), zap.Error(err))
		}
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordPosted(ctx, m.name, tenantID)
		m.deps.Metrics.RecordPostingDuration(ctx, m.name, float64(time.Since(start).Milliseconds()))
	}
	if m.deps.Audit != nil {
		m.deps.Audit.LogAction(ctx, m.name, op.Type+"_posted", map[string]any{
			"document_number": docNumber,
			"transaction_id":  record.ID.String(),
		})
	}

	logger.L(ctx).Info("document posted",
		zap.String("module", m.name),
		zap.String("function", op.Function),
		zap.String("document_number", docNumber),
	)

	return &PostResult{
		Success:        true,
		DocumentNumber: docNumber,
		TransactionID:  record.ID.String(),
		Messages:       parsed,
	}, nil
}

// rollback issues a rollback and logs a failure without masking the original
// error the caller is already handling.
func (m *Module) rollback(ctx context.Context, conn sap.Connector, function string) {
	if err := sap.Rollback(ctx, conn); err != nil {
		logger.L(ctx).Error("rollback failed",
			zap.String("module", m.name),
			zap.String("function", function),
			zap.Error(err),
		)
	}
}

func (m *Module) finishFailed(ctx context.Context, record *sap.TransactionRecord, tenantID string, op PostingOp, reason string) {
	record.Fail(reason)
	m.recorder.Record(record)
	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordFailed(ctx, m.name, tenantID)
	}
	if m.deps.Audit != nil {
		m.deps.Audit.LogAction(ctx, m.name, op.Type+"_failed", map[string]any{
			"transaction_id": record.ID.String(),
			"error":          reason,
		})
	}
	logger.L(ctx).Error("posting failed",
		zap.String("module", m.name),
		zap.String("function", op.Function),
		zap.String("reason", reason),
	)
}
