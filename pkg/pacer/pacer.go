package pacer

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMin = 3 * time.Second
	DefaultMax = 10 * time.Second
)

// Waiter pauses between consecutive requests
type Waiter interface {
	// Wait blocks for the next delay or until ctx is done
	Wait(ctx context.Context) (time.Duration, error)
}

// Pacer waits a uniformly random delay drawn from [min, max] at
// millisecond granularity.
type Pacer struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	// after is swapped out in tests
	after func(time.Duration) <-chan time.Time
}

// New creates a pacer. Bounds are swapped if given in the wrong order and
// negative bounds are treated as zero.
func New(min, max time.Duration) *Pacer {
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	if max < min {
		min, max = max, min
	}
	return &Pacer{
		min:   min,
		max:   max,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		after: time.After,
	}
}

// Default returns a pacer with the 3s..10s window
func Default() *Pacer {
	return New(DefaultMin, DefaultMax)
}

// Bounds returns the configured window
func (p *Pacer) Bounds() (time.Duration, time.Duration) {
	return p.min, p.max
}

// Next draws the next delay
func (p *Pacer) Next() time.Duration {
	lo := p.min.Milliseconds()
	hi := p.max.Milliseconds()
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}

	p.mu.Lock()
	n := p.rng.Int63n(hi - lo + 1)
	p.mu.Unlock()

	return time.Duration(lo+n) * time.Millisecond
}

// Wait sleeps for Next() and returns the delay it waited. If ctx ends first
// the context error is returned.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	if d <= 0 {
		return 0, ctx.Err()
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.after(d):
		return d, nil
	}
}

// None is a Waiter that never waits
type None struct{}

func (None) Wait(ctx context.Context) (time.Duration, error) {
	return 0, ctx.Err()
}
