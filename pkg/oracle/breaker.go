package oracle

import (
	"sync"
)

// Breaker counts consecutive oracle failures and, past a threshold, stays
// open for the rest of the run. There is no half-open probing: once the
// service has proven unreliable mid-run, the run finishes on heuristic
// defaults rather than stalling on more timeouts.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	failures  int
	open      bool
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures. A non-positive threshold disables the breaker.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.open
}

// RecordSuccess resets the consecutive-failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}

// RecordFailure registers one failure, opening the breaker at the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.threshold <= 0 {
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
	}
}

// Open reports whether the breaker has tripped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
