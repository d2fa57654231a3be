// Package pacing inserts randomized pauses between outbound calls.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
)

// Pacer pauses for a uniformly random duration in [Min, Max].
type Pacer struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand

	sleep func(ctx context.Context, d time.Duration)
}

// Option customizes a Pacer.
type Option func(*Pacer)

// WithRand swaps the random source, mainly for tests.
func WithRand(r *rand.Rand) Option {
	return func(p *Pacer) {
		if r != nil {
			p.rnd = r
		}
	}
}

// WithSleep swaps the pause implementation.
func WithSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(p *Pacer) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// New builds a Pacer. A max below min is clamped to min.
func New(minDelay, maxDelay time.Duration, opts ...Option) *Pacer {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	p := &Pacer{
		min:   minDelay,
		max:   maxDelay,
		rnd:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		sleep: timerSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay draws the next pause duration.
func (p *Pacer) Delay() time.Duration {
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	p.mu.Lock()
	n := p.rnd.Int64N(int64(span) + 1)
	p.mu.Unlock()
	return p.min + time.Duration(n)
}

// Pace blocks for one random delay or until ctx is done.
func (p *Pacer) Pace(ctx context.Context) {
	d := p.Delay()
	metrics.ObservePaceDelay(d)
	p.sleep(ctx, d)
}

func timerSleep(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Nop never pauses.
type Nop struct{}

// Pace returns immediately.
func (Nop) Pace(context.Context) {}
