package searchinterest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
)

type stubClient struct {
	mu      sync.Mutex
	calls   [][]string
	callsAt []time.Time
	fail    map[string]error
	days    int
}

func (s *stubClient) InterestOverTime(_ context.Context, keywords []string, window Window) ([]collector.InterestSample, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), keywords...))
	s.callsAt = append(s.callsAt, time.Now())
	s.mu.Unlock()

	for _, kw := range keywords {
		if err, ok := s.fail[kw]; ok {
			return nil, err
		}
	}
	days := s.days
	if days == 0 {
		days = DefaultLookbackDays
	}
	var out []collector.InterestSample
	for d := 0; d < days; d++ {
		for i, kw := range keywords {
			out = append(out, collector.InterestSample{
				Date:     window.Start.AddDate(0, 0, d),
				Keyword:  kw,
				Interest: (d + i) % 101,
			})
		}
	}
	return out, nil
}

type countingPacer struct{ n int }

func (p *countingPacer) Pace(context.Context) { p.n++ }

var brands = []string{"Hermès bag", "Chanel bag", "Louis Vuitton bag", "Gucci bag", "Prada bag", "Bottega Veneta bag"}

func TestFetchBatchesSixBrandsIntoTwoCalls(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	pacer := &countingPacer{}
	a := New(client, Options{Pacer: pacer, Clock: system.NewFixed(time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC))})

	res := a.Fetch(context.Background(), "brands", brands)

	require.Len(t, client.calls, 2)
	assert.Len(t, client.calls[0], 5)
	assert.Equal(t, []string{"Bottega Veneta bag"}, client.calls[1])
	assert.Equal(t, 2, res.Batches)
	assert.Len(t, res.Rows, 540)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 1, pacer.n, "pace between batches only")
}

func TestFetchBatchCountProperty(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 23; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()
			keywords := make([]string, n)
			for i := range keywords {
				keywords[i] = fmt.Sprintf("kw-%d", i)
			}
			client := &stubClient{days: 1}
			res := New(client, Options{}).Fetch(context.Background(), "c", keywords)

			want := (n + BatchSize - 1) / BatchSize
			assert.Len(t, client.calls, want)
			assert.Equal(t, want, res.Batches)
			for _, call := range client.calls {
				assert.LessOrEqual(t, len(call), BatchSize)
			}
		})
	}
}

func TestFetchIsolatesFailedBatch(t *testing.T) {
	t.Parallel()

	boom := errors.New("429 too many requests")
	client := &stubClient{fail: map[string]error{"Hermès bag": boom}}
	res := New(client, Options{}).Fetch(context.Background(), "brands", brands)

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], boom)
	assert.Equal(t, brands[:5], res.Failures[0].Batch)
	assert.Equal(t, collector.SourceSearchInterest, res.Failures[0].Source)
	assert.Len(t, res.Rows, DefaultLookbackDays)
	assert.False(t, res.Failed())
}

func TestFetchEmptyResponseIsFailure(t *testing.T) {
	t.Parallel()

	client := &stubClient{fail: map[string]error{}, days: -1}
	res := New(client, Options{}).Fetch(context.Background(), "colors", []string{"black bag"})
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], collector.ErrNoRows)
	assert.True(t, res.Failed())
}

func TestFetchCollapsesDuplicateDays(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	client := clientFunc(func(_ context.Context, kws []string, _ Window) ([]collector.InterestSample, error) {
		return []collector.InterestSample{
			{Date: day, Keyword: kws[0], Interest: 10},
			{Date: day.Add(6 * time.Hour), Keyword: kws[0], Interest: 99},
		}, nil
	})
	res := New(client, Options{}).Fetch(context.Background(), "styles", []string{"tote bag"})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, collector.Row{day, "tote bag", 10}, res.Rows[0])
}

func TestFetchPacingBetweenBatches(t *testing.T) {
	t.Parallel()

	minDelay := 30 * time.Millisecond
	client := &stubClient{days: 1}
	a := New(client, Options{Pacer: pacing.New(minDelay, 40*time.Millisecond)})
	a.Fetch(context.Background(), "brands", append(brands, brands...))

	require.Len(t, client.callsAt, 3)
	for i := 1; i < len(client.callsAt); i++ {
		assert.GreaterOrEqual(t, client.callsAt[i].Sub(client.callsAt[i-1]), minDelay)
	}
}

func TestWindowIsNinetyDaysEndingToday(t *testing.T) {
	t.Parallel()

	a := New(&stubClient{}, Options{Clock: system.NewFixed(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC))})
	w := a.Window()
	assert.Equal(t, "2026-01-01 2026-03-31", w.String())
}

type clientFunc func(ctx context.Context, keywords []string, window Window) ([]collector.InterestSample, error)

func (f clientFunc) InterestOverTime(ctx context.Context, keywords []string, window Window) ([]collector.InterestSample, error) {
	return f(ctx, keywords, window)
}
