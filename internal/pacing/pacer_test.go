package pacing

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayWithinBounds(t *testing.T) {
	t.Parallel()

	p := New(5*time.Second, 15*time.Second, WithRand(rand.New(rand.NewPCG(1, 2))))
	for range 1000 {
		d := p.Delay()
		require.GreaterOrEqual(t, d, 5*time.Second)
		require.LessOrEqual(t, d, 15*time.Second)
	}
}

func TestDelayFixedWhenBoundsEqual(t *testing.T) {
	t.Parallel()

	p := New(time.Second, time.Second)
	assert.Equal(t, time.Second, p.Delay())

	clamped := New(2*time.Second, time.Second)
	assert.Equal(t, 2*time.Second, clamped.Delay())
}

func TestPaceSleepsAtLeastMin(t *testing.T) {
	t.Parallel()

	p := New(20*time.Millisecond, 30*time.Millisecond)
	start := time.Now()
	p.Pace(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPaceStopsOnCancel(t *testing.T) {
	t.Parallel()

	p := New(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Pace(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pace did not return after cancellation")
	}
}

func TestPaceUsesInjectedSleep(t *testing.T) {
	t.Parallel()

	var got []time.Duration
	p := New(3*time.Second, 3*time.Second, WithSleep(func(_ context.Context, d time.Duration) {
		got = append(got, d)
	}))
	p.Pace(context.Background())
	p.Pace(context.Background())
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, got)
}
