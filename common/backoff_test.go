package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(100 * time.Millisecond)
	ctx := context.Background()

	var last time.Duration
	for i := 0; i < 6; i++ {
		start := time.Now()
		b.Wait(ctx)
		last = time.Since(start)
		assert.LessOrEqual(t, last, 400*time.Millisecond, "wait must stay near the cap")
	}
	// after six doublings the sequence is pinned at the cap
	assert.GreaterOrEqual(t, last, 70*time.Millisecond)
}

func TestBackoffFirstWaitIsShort(t *testing.T) {
	b := NewBackoff(2 * time.Second)
	start := time.Now()
	b.Wait(context.Background())
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 500*time.Millisecond)
}

func TestBackoffCanceledContext(t *testing.T) {
	b := NewBackoff(2 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	b.Wait(ctx)
	assert.Less(t, time.Since(start), 20*time.Millisecond, "canceled context must not sleep")
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(2 * time.Second)
	ctx := context.Background()
	b.Wait(ctx)
	b.Wait(ctx)
	b.Reset()

	start := time.Now()
	b.Wait(ctx)
	assert.LessOrEqual(t, time.Since(start), 500*time.Millisecond, "reset restarts from the base delay")
}
