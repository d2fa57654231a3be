// Package visualtrend records whether a keyword has visible traction on
// Pinterest.
package visualtrend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/fetcher/headless"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
)

// BatchSize is one page render per keyword.
const BatchSize = 1

// PinSelector matches rendered pins on a search page.
const PinSelector = `[data-test-id="pin"]`

// Renderer loads a page in a browser.
type Renderer interface {
	Render(ctx context.Context, url string) (headless.Page, error)
}

// Options tune an Adapter.
type Options struct {
	BaseURL string
	Pacer   collector.Pacer
	Clock   collector.Clock
	Logger  *zap.Logger
}

// Adapter implements collector.Adapter for the visual-trend source.
type Adapter struct {
	renderer Renderer
	baseURL  string
	pacer    collector.Pacer
	clock    collector.Clock
	logger   *zap.Logger
}

// New builds an Adapter over renderer.
func New(renderer Renderer, opts Options) *Adapter {
	a := &Adapter{
		renderer: renderer,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pacer:    opts.Pacer,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if a.baseURL == "" {
		a.baseURL = "https://www.pinterest.com"
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
	a.logger = a.logger.Named("visual_trend")
	return a
}

// Source implements collector.Adapter.
func (a *Adapter) Source() collector.SourceID { return collector.SourceVisualTrend }

// SearchURL builds the pin search URL for keyword.
func (a *Adapter) SearchURL(keyword string) string {
	return a.baseURL + "/search/pins/?q=" + url.QueryEscape(keyword)
}

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
		keyword := batch[0]
		presence, err := a.lookup(ctx, keyword)
		if err != nil {
			logger.Warn("visual trend lookup failed", zap.String("keyword", keyword), zap.Error(err))
			res.Failures = append(res.Failures, collector.NewCollectionError(a.Source(), category, batch, err))
			metrics.ObserveBatch(string(a.Source()), metrics.OutcomeFailure)
			continue
		}
		res.Rows = append(res.Rows, collector.TrendSignal{
			Query:    keyword,
			Presence: presence,
			Date:     a.clock.Now(),
		}.Row())
		metrics.ObserveBatch(string(a.Source()), metrics.OutcomeSuccess)
	}
	return res
}

func (a *Adapter) lookup(ctx context.Context, keyword string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	page, err := a.renderer.Render(ctx, a.SearchURL(keyword))
	if err != nil {
		return false, fmt.Errorf("render %q: %w", keyword, err)
	}
	return HasPins(page.HTML)
}

// HasPins reports whether the rendered HTML holds at least one pin.
func HasPins(html string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse rendered page: %w", err)
	}
	return doc.Find(PinSelector).Length() > 0, nil
}
