// Package searchinterest collects daily relative search interest from
// Google Trends.
package searchinterest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
)

// BatchSize is the most keywords Google Trends compares in one request.
const BatchSize = 5

// DefaultLookbackDays is the length of the collected window.
const DefaultLookbackDays = 90

// Client fetches interest for up to BatchSize keywords in one call.
type Client interface {
	InterestOverTime(ctx context.Context, keywords []string, window Window) ([]collector.InterestSample, error)
}

// Options tune an Adapter.
type Options struct {
	LookbackDays int
	Pacer        collector.Pacer
	Clock        collector.Clock
	Logger       *zap.Logger
}

// Adapter implements collector.Adapter for search interest.
type Adapter struct {
	client   Client
	pacer    collector.Pacer
	clock    collector.Clock
	lookback int
	logger   *zap.Logger
}

// New builds an Adapter over client.
func New(client Client, opts Options) *Adapter {
	a := &Adapter{
		client:   client,
		pacer:    opts.Pacer,
		clock:    opts.Clock,
		lookback: opts.LookbackDays,
		logger:   opts.Logger,
	}
	if a.pacer == nil {
		a.pacer = pacing.Nop{}
	}
	if a.clock == nil {
		a.clock = system.Clock{}
	}
	if a.lookback <= 0 {
		a.lookback = DefaultLookbackDays
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.Named("search_interest")
	return a
}

// Source implements collector.Adapter.
func (a *Adapter) Source() collector.SourceID { return collector.SourceSearchInterest }

// Window returns the lookback window ending today.
func (a *Adapter) Window() Window {
	end := truncateDay(a.clock.Now())
	return Window{Start: end.AddDate(0, 0, -(a.lookback - 1)), End: end}
}

type sampleKey struct {
	day     time.Time
	keyword string
}

// Fetch implements collector.Adapter.
func (a *Adapter) Fetch(ctx context.Context, category string, keywords []string) collector.Result {
	res := collector.Result{Source: a.Source(), Category: category}
	batches := collector.Batch(keywords, BatchSize)
	res.Batches = len(batches)
	window := a.Window()
	seen := make(map[sampleKey]struct{})
	logger := a.logger.With(zap.String("category", category))

	for i, batch := range batches {
		if i > 0 {
			a.pacer.Pace(ctx)
		}
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, collector.NewCollectionError(a.Source(), category, batch, err))
			metrics.ObserveBatch(string(a.Source()), metrics.OutcomeFailure)
			continue
		}

		samples, err := a.client.InterestOverTime(ctx, batch, window)
		if err == nil && len(samples) == 0 {
			err = collector.ErrNoRows
		}
		if err != nil {
			logger.Warn("search interest batch failed", zap.Strings("batch", batch), zap.Error(err))
			res.Failures = append(res.Failures, collector.NewCollectionError(a.Source(), category, batch, err))
			metrics.ObserveBatch(string(a.Source()), metrics.OutcomeFailure)
			continue
		}

		added := 0
		for _, s := range samples {
			k := sampleKey{day: truncateDay(s.Date), keyword: s.Keyword}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			s.Date = k.day
			res.Rows = append(res.Rows, s.Row())
			added++
		}
		logger.Debug("search interest batch collected", zap.Strings("batch", batch), zap.Int("rows", added))
		metrics.ObserveBatch(string(a.Source()), metrics.OutcomeSuccess)
	}
	return res
}
