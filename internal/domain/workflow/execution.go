// Package workflow holds the execution records and matching rules shared by
// the workflow orchestrators.
package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a procure-to-pay execution
type Status string

const (
	StatusInitiated        Status = "initiated"
	StatusPOCreated        Status = "po_created"
	StatusGoodsReceived    Status = "goods_received"
	StatusInvoicePosted    Status = "invoice_posted"
	StatusPaymentProcessed Status = "payment_processed"
	StatusCompleted        Status = "completed"
	StatusRequiresReview   Status = "requires_review"
	StatusFailed           Status = "failed"
)

// IsTerminal returns true once an execution may no longer advance
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRequiresReview
}

// Document types collected into an execution record
const (
	DocPurchaseOrder    = "po_number"
	DocMaterialDocument = "material_document"
	DocInvoice          = "invoice_document"
	DocPayment          = "payment_document"
)

// Execution is the mutable record of one workflow run. The owning orchestrator
// advances it as steps complete and freezes it at a terminal status. Other
// goroutines must read through Snapshot; the record may still be advancing.
type Execution struct {
	mu sync.Mutex

	ID             string            `json:"workflow_id"`
	Status         Status            `json:"status"`
	StepsCompleted []string          `json:"steps_completed"`
	Documents      map[string]string `json:"documents"`
	Errors         []string          `json:"errors"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
}

// NewExecution creates an execution record with a prefixed workflow id
func NewExecution(prefix string) *Execution {
	return &Execution{
		ID:             fmt.Sprintf("%s-%s", prefix, uuid.NewString()),
		Status:         StatusInitiated,
		StepsCompleted: make([]string, 0, 5),
		Documents:      make(map[string]string),
		Errors:         make([]string, 0),
		StartedAt:      time.Now(),
	}
}

// CompleteStep records a finished step, its produced document, and the new
// execution status. Ignored once the execution is terminal.
func (e *Execution) CompleteStep(step, docType, docNumber string, status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Status.IsTerminal() {
		return
	}
	e.StepsCompleted = append(e.StepsCompleted, step)
	if docType != "" && docNumber != "" {
		e.Documents[docType] = docNumber
	}
	e.Status = status
}

// AddError appends an error message without changing the status
func (e *Execution) AddError(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Errors = append(e.Errors, msg)
}

// Finish moves the execution to a terminal status exactly once
func (e *Execution) Finish(status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishLocked(status)
}

func (e *Execution) finishLocked(status Status) {
	if e.Status.IsTerminal() {
		return
	}
	e.Status = status
	now := time.Now()
	e.FinishedAt = &now
}

// Fail records the error and moves the execution to failed
func (e *Execution) Fail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Errors = append(e.Errors, msg)
	e.finishLocked(StatusFailed)
}

// Snapshot returns a detached copy safe to serialize while the owning run is
// still advancing the record.
func (e *Execution) Snapshot() *Execution {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := &Execution{
		ID:             e.ID,
		Status:         e.Status,
		StepsCompleted: append([]string(nil), e.StepsCompleted...),
		Documents:      make(map[string]string, len(e.Documents)),
		Errors:         append([]string(nil), e.Errors...),
		StartedAt:      e.StartedAt,
	}
	for docType, docNumber := range e.Documents {
		out.Documents[docType] = docNumber
	}
	if e.FinishedAt != nil {
		finished := *e.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

// Tracker keeps recent executions queryable by id. Bounded; oldest runs are
// dropped first.
type Tracker struct {
	mu       sync.RWMutex
	byID     map[string]*Execution
	order    []string
	capacity int
}

// NewTracker creates a Tracker holding at most capacity executions
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 256
	}
	return &Tracker{
		byID:     make(map[string]*Execution, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Add registers an execution, evicting the oldest when full
func (t *Tracker) Add(e *Execution) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.order) >= t.capacity {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.byID, oldest)
	}
	t.byID[e.ID] = e
	t.order = append(t.order, e.ID)
}

// Get returns the execution with the given id, or nil
func (t *Tracker) Get(id string) *Execution {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[id]
}
