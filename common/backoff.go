package common

import (
	"context"
	"math/rand/v2"
	"time"
)

// first delay in the doubling sequence
const baseWait = 50 * time.Millisecond

// Backoff spaces out retries: each Wait sleeps roughly twice as long as the
// previous one, with jitter, capped at the configured maximum.
type Backoff struct {
	attempts int
	max      time.Duration
}

func NewBackoff(max time.Duration) *Backoff {
	return &Backoff{max: max}
}

// Wait sleeps for the next delay in the sequence, or returns early once ctx
// is done. Jitter keeps independent retriers from waking in lockstep.
func (b *Backoff) Wait(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	wait := baseWait << b.attempts
	if wait > b.max || wait < baseWait { // shift overflow lands here too
		wait = b.max
	}
	b.attempts++
	wait = time.Duration(float64(wait) * (0.75 + 0.5*rand.Float64()))
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

// Reset restarts the sequence from the base delay.
func (b *Backoff) Reset() {
	b.attempts = 0
}
