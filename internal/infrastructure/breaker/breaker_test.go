package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sapflow/backend/internal/domain/shared"
)

var errRemote = errors.New("gateway unreachable")

func failing(ctx context.Context) error { return errRemote }
func succeeding(ctx context.Context) error { return nil }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := New(Config{FailureThreshold: threshold, Cooldown: cooldown})
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(ctx, failing), errRemote)
	}
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerFailsFastWhenOpen(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Execute(ctx, failing)
	}

	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrCircuitOpen)
	assert.False(t, invoked, "operation must not run while open")
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	b.Execute(ctx, failing)
	b.Execute(ctx, failing)
	assert.Equal(t, StateOpen, b.State())

	*now = now.Add(61 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesOnSuccessfulTrial(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	b.Execute(ctx, failing)
	b.Execute(ctx, failing)
	*now = now.Add(2 * time.Minute)

	assert.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	b.Execute(ctx, failing)
	b.Execute(ctx, failing)
	*now = now.Add(2 * time.Minute)

	assert.ErrorIs(t, b.Execute(ctx, failing), errRemote)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerAdmitsSingleTrialWhenHalfOpen(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	b.Execute(ctx, failing)
	*now = now.Add(2 * time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Execute(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// while the trial is in flight, further calls fail fast
	err := b.Execute(ctx, succeeding)
	assert.ErrorIs(t, err, shared.ErrCircuitOpen)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	b.Execute(ctx, failing)
	b.Execute(ctx, failing)
	b.Execute(ctx, succeeding)
	b.Execute(ctx, failing)
	b.Execute(ctx, failing)

	assert.Equal(t, StateClosed, b.State(), "interleaved success resets the streak")
}

func TestBreakerDefaultsApplied(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, b.cfg.Cooldown)
}
