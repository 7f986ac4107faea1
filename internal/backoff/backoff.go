// Package backoff implements jittered exponential delays.
package backoff

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Backoff grows the delay by multiplier up to maxDelay, with ±20% jitter
type Backoff struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	multiplier float64
	current    time.Duration
	attempts   int
	mu         sync.Mutex
}

// New creates a Backoff starting at minDelay
func New(minDelay, maxDelay time.Duration, multiplier float64) *Backoff {
	return &Backoff{
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		multiplier: multiplier,
		current:    minDelay,
	}
}

// Next returns the delay for the next attempt
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts++

	jitterFactor := rand.Float64()*0.4 - 0.2
	jitter := time.Duration(jitterFactor * float64(b.current))
	wait := max(b.current+jitter, b.minDelay)

	b.current = min(time.Duration(float64(b.current)*b.multiplier), b.maxDelay)

	return wait
}

// Reset returns to the initial delay
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.minDelay
	b.attempts = 0
}

// Attempts returns the number of Next calls since the last Reset
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.attempts
}
