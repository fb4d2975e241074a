package sap

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle status of a transaction record
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionInProgress TransactionStatus = "in_progress"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionFailed     TransactionStatus = "failed"
	TransactionCancelled  TransactionStatus = "cancelled"
)

// IsTerminal returns true once a record may no longer be mutated
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed || s == TransactionCancelled
}

// TransactionRecord is the audit-ready trace of one remote posting attempt.
// It is created at call start and moved to exactly one terminal status.
type TransactionRecord struct {
	ID             uuid.UUID         `json:"transaction_id"`
	Module         string            `json:"module"`
	Type           string            `json:"transaction_type"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CreatedBy      string            `json:"created_by"`
	Payload        map[string]any    `json:"payload,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	DocumentNumber string            `json:"remote_document_number,omitempty"`
}

// NewTransactionRecord creates a pending record for a posting attempt
func NewTransactionRecord(module, txType, createdBy string, payload map[string]any) *TransactionRecord {
	now := time.Now()
	return &TransactionRecord{
		ID:        uuid.New(),
		Module:    module,
		Type:      txType,
		Status:    TransactionPending,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
		Payload:   payload,
	}
}

// Complete moves the record to its completed terminal state
func (t *TransactionRecord) Complete(documentNumber string) {
	if t.Status.IsTerminal() {
		return
	}
	t.Status = TransactionCompleted
	t.DocumentNumber = documentNumber
	t.UpdatedAt = time.Now()
}

// Fail moves the record to its failed terminal state
func (t *TransactionRecord) Fail(reason string) {
	if t.Status.IsTerminal() {
		return
	}
	t.Status = TransactionFailed
	t.ErrorMessage = reason
	t.UpdatedAt = time.Now()
}

// Recorder keeps the per-module transaction history in a bounded rotating
// store. Each domain module owns its own Recorder; durable audit storage is an
// external collaborator and receives records through the audit sink instead.
type Recorder struct {
	mu       sync.RWMutex
	records  []*TransactionRecord
	capacity int
}

// DefaultRecorderCapacity bounds memory for the in-process audit trail
const DefaultRecorderCapacity = 1000

// NewRecorder creates a Recorder holding at most capacity records.
// A non-positive capacity falls back to DefaultRecorderCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{
		records:  make([]*TransactionRecord, 0, capacity),
		capacity: capacity,
	}
}

// Record appends a record, evicting the oldest when full
func (r *Recorder) Record(record *TransactionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.capacity {
		copy(r.records, r.records[1:])
		r.records[len(r.records)-1] = record
		return
	}
	r.records = append(r.records, record)
}

// History returns a snapshot of recorded transactions, optionally filtered by
// status. Pass "" to return everything.
func (r *Recorder) History(filter TransactionStatus) []*TransactionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TransactionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter == "" || rec.Status == filter {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of records currently held
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// LastActivity returns the updated-at time of the newest record, or the zero
// time when no transaction has been recorded yet.
func (r *Recorder) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return time.Time{}
	}
	return r.records[len(r.records)-1].UpdatedAt
}
