// Package marketplace collects sold-listing prices from eBay.
package marketplace

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
)

// BatchSize is one query per keyword.
const BatchSize = 1

// DefaultQualifier is prefixed to every query that lacks it.
const DefaultQualifier = "vintage"

// Client returns the sold listings for one query.
type Client interface {
	SoldListings(ctx context.Context, query string) ([]Listing, error)
}

// Options tune an Adapter.
type Options struct {
	Qualifier string
	Pacer     collector.Pacer
	Clock     collector.Clock
	Logger    *zap.Logger
}

// Adapter implements collector.Adapter for marketplace prices.
type Adapter struct {
	client    Client
	qualifier string
	pacer     collector.Pacer
	clock     collector.Clock
	logger    *zap.Logger
}

// New builds an Adapter over client.
func New(client Client, opts Options) *Adapter {
	a := &Adapter{
		client:    client,
		qualifier: opts.Qualifier,
		pacer:     opts.Pacer,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if strings.TrimSpace(a.qualifier) == "" {
		a.qualifier = DefaultQualifier
	}
	if a.pacer == nil {
		a.pacer = pacing.Nop{}
	}
	if a.clock == nil {
		a.clock = system.Clock{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.Named("marketplace")
	return a
}

// Source implements collector.Adapter.
func (a *Adapter) Source() collector.SourceID { return collector.SourceMarketplace }

// Fetch implements collector.Adapter.
func (a *Adapter) Fetch(ctx context.Context, category string, keywords []string) collector.Result {
	res := collector.Result{Source: a.Source(), Category: category}
	batches := collector.Batch(keywords, BatchSize)
	res.Batches = len(batches)
	logger := a.logger.With(zap.String("category", category))

	for i, batch := range batches {
		if i > 0 {
			a.pacer.Pace(ctx)
		}
		query := Qualify(batch[0], a.qualifier)
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, collector.NewCollectionError(a.Source(), category, []string{query}, err))
			metrics.ObserveBatch(string(a.Source()), metrics.OutcomeFailure)
			continue
		}

		listings, err := a.client.SoldListings(ctx, query)
		if err == nil && len(listings) == 0 {
			err = collector.ErrNoRows
		}
		if err != nil {
			logger.Warn("marketplace query failed", zap.String("query", query), zap.Error(err))
			res.Failures = append(res.Failures, collector.NewCollectionError(a.Source(), category, []string{query}, err))
			metrics.ObserveBatch(string(a.Source()), metrics.OutcomeFailure)
			continue
		}

		scraped := a.clock.Now()
		for _, l := range listings {
			res.Rows = append(res.Rows, collector.PriceListing{
				Query:       query,
				Title:       l.Title,
				Price:       l.Price,
				DateScraped: scraped,
			}.Row())
		}
		logger.Debug("marketplace query collected", zap.String("query", query), zap.Int("listings", len(listings)))
		metrics.ObserveBatch(string(a.Source()), metrics.OutcomeSuccess)
	}
	return res
}
