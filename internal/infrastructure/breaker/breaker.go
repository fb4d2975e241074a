// Package breaker provides a three-state circuit breaker used to shield the
// gateway from cascading failures. Closed passes calls through, open fails
// fast, half-open admits a single trial call after the cooldown.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sapflow/backend/internal/domain/shared"
)

// State is the current circuit breaker mode
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config controls when the breaker trips and how long it stays open
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // time in open before a trial is allowed
}

// DefaultConfig matches the gateway defaults: trip after 5 consecutive
// failures, retry after a 60 second cooldown.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, Cooldown: 60 * time.Second}
}

// Breaker wraps an operation with circuit breaking. Safe for concurrent use;
// state transitions and the half-open trial are serialized under one mutex.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	trialActive bool

	cfg Config
	now func() time.Time
}

// New creates a closed Breaker. A non-positive threshold or cooldown falls
// back to the defaults.
func New(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{state: StateClosed, cfg: cfg, now: time.Now}
}

// State returns the current mode, applying the open-to-half-open transition
// if the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Execute runs op under the breaker. When the circuit is open (or a half-open
// trial is already in flight) it returns shared.ErrCircuitOpen without
// invoking op. A successful call in any state closes the circuit and resets
// the failure count; a failed call counts toward the threshold, and a failed
// half-open trial reopens the circuit immediately.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := op(ctx)
	b.record(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()

	switch b.state {
	case StateOpen:
		return shared.ErrCircuitOpen
	case StateHalfOpen:
		if b.trialActive {
			return shared.ErrCircuitOpen
		}
		b.trialActive = true
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialActive = false

	if success {
		b.state = StateClosed
		b.failures = 0
		return
	}

	if b.state == StateHalfOpen {
		b.reopenLocked()
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.reopenLocked()
	}
}

func (b *Breaker) reopenLocked() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = b.cfg.FailureThreshold
}

// maybeHalfOpenLocked moves an open circuit to half-open once the cooldown
// has elapsed. Caller must hold b.mu.
func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = StateHalfOpen
		b.trialActive = false
	}
}
