package oracle

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter sized in requests per minute. A zero
// or negative rate disables limiting entirely.
type Limiter struct {
	mu    sync.Mutex
	cap   float64
	level float64
	rate  float64 // tokens per second
	last  time.Time
	now   func() time.Time
}

// NewLimiter creates a limiter allowing requestsPerMinute calls, starting
// full. The now function defaults to time.Now and exists for tests.
func NewLimiter(requestsPerMinute int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	limiter := &Limiter{now: now}
	if requestsPerMinute > 0 {
		limiter.cap = float64(requestsPerMinute)
		limiter.level = float64(requestsPerMinute)
		limiter.rate = float64(requestsPerMinute) / 60.0
		limiter.last = now()
	}
	return limiter
}

// Wait blocks until one request token is available or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait, ok := l.tryTake()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryTake consumes a token if available, otherwise returns how long to wait
// before retrying.
func (l *Limiter) tryTake() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cap == 0 {
		return 0, true
	}

	now := l.now()
	if now.After(l.last) {
		l.level += now.Sub(l.last).Seconds() * l.rate
		if l.level > l.cap {
			l.level = l.cap
		}
		l.last = now
	}

	if l.level >= 1 {
		l.level--
		return 0, true
	}

	deficit := 1 - l.level
	wait := time.Duration(deficit / l.rate * float64(time.Second))
	const minWait = 10 * time.Millisecond
	if wait < minWait {
		wait = minWait
	}
	return wait, false
}
