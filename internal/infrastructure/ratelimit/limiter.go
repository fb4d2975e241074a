// Package ratelimit implements per-client admission control using the token
// bucket algorithm. Each client gets an independent bucket that refills
// continuously; checks are O(1).
package ratelimit

import (
	"sync"
	"time"
)

// InactivityWindow is how long an idle bucket survives before eviction
const InactivityWindow = time.Hour

// bucket holds the token state for one client. Tokens are fractional because
// refill is continuous (refillRate tokens per second).
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter is an in-memory token bucket rate limiter keyed by client id.
// Buckets are created lazily on first use and evicted after InactivityWindow.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter allowing requestsPerMinute sustained requests per
// client, with bursts up to the same amount. A background goroutine evicts
// idle buckets; call Stop to release it.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(requestsPerMinute),
		refillRate: float64(requestsPerMinute) / 60.0,
		stopChan:   make(chan struct{}),
	}
	go l.evictLoop()
	return l
}

// Allow reports whether a request from the given client is admitted. The
// read-refill-subtract sequence runs under the limiter lock so concurrent
// calls for the same client can never double-admit on the same token.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refreshLocked(clientID, time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// WaitTime returns the exact delay until one token becomes available for the
// client. Zero when a request would be admitted immediately.
func (l *Limiter) WaitTime(clientID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refreshLocked(clientID, time.Now())
	if b.tokens >= 1 {
		return 0
	}
	seconds := (1 - b.tokens) / l.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// Limit returns the configured bucket capacity
func (l *Limiter) Limit() int {
	return int(l.capacity)
}

// Remaining returns the number of whole tokens currently available
func (l *Limiter) Remaining(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refreshLocked(clientID, time.Now())
	return int(b.tokens)
}

// Stop terminates the eviction goroutine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

// refreshLocked fetches or lazily creates the client's bucket and applies the
// continuous refill, capping at capacity. Caller must hold l.mu.
func (l *Limiter) refreshLocked(clientID string, now time.Time) *bucket {
	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[clientID] = b
		return b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.lastRefill = now
	}
	return b
}

// evictLoop drops buckets idle for longer than InactivityWindow. Eviction
// takes the same lock as Allow, so it can never race an active admission.
func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(InactivityWindow / 4)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *Limiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for clientID, b := range l.buckets {
		if now.Sub(b.lastRefill) > InactivityWindow {
			delete(l.buckets, clientID)
		}
	}
}
