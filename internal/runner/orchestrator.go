// Package runner sequences one collection run across the active sources.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
)

// Category outcome statuses.
const (
	StatusOK          = "ok"
	StatusPartial     = "partial"
	StatusFailed      = "failed"
	StatusWriteFailed = "write_failed"
	StatusSkipped     = "skipped"
)

// Source label used for error records that no adapter owns.
const writerSource = "writer"

// CatalogLoader resolves the keyword catalog.
type CatalogLoader interface {
	Load() collector.Catalog
}

// TableWriter persists rows.
type TableWriter interface {
	Clear(ctx context.Context, table collector.Table) error
	Append(ctx context.Context, table collector.Table, rows []collector.Row) error
	Write(ctx context.Context, table collector.Table, rows []collector.Row) error
}

// CategoryOutcome summarizes one plan entry.
type CategoryOutcome struct {
	Source   collector.SourceID `json:"source"`
	Category string             `json:"category"`
	Table    string             `json:"table"`
	Status   string             `json:"status"`
	Rows     int                `json:"rows"`
	Batches  int                `json:"batches"`
	Failures int                `json:"failures"`
}

// RunSummary is reported when a run reaches DONE.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Categories   []CategoryOutcome `json:"categories"`
	RowsWritten  int               `json:"rows_written"`
	ErrorsLogged int               `json:"errors_logged"`
	Canceled     bool              `json:"canceled,omitempty"`
}

// Failed counts categories that produced nothing.
func (s RunSummary) Failed() int {
	n := 0
	for _, c := range s.Categories {
		if c.Status == StatusFailed || c.Status == StatusWriteFailed {
			n++
		}
	}
	return n
}

// Deps are the collaborators of an Orchestrator. Loader, Writer and Sink
// are required.
type Deps struct {
	Adapters  []collector.Adapter
	Loader    CatalogLoader
	Writer    TableWriter
	Sink      collector.ErrorSink
	Pacer     collector.Pacer
	Publisher collector.Publisher
	Clock     collector.Clock
	IDs       collector.IDGenerator
	Logger    *zap.Logger
	// AfterRun runs once the summary is final, e.g. a Pushgateway push.
	AfterRun func(ctx context.Context, summary RunSummary) error
}

// Orchestrator runs the plan.
type Orchestrator struct {
	plan     []PlanEntry
	adapters map[collector.SourceID]collector.Adapter
	deps     Deps
	logger   *zap.Logger
}

// New builds an Orchestrator for the entries of plan whose source is active.
func New(plan []PlanEntry, active []collector.SourceID, deps Deps) (*Orchestrator, error) {
	if deps.Loader == nil || deps.Writer == nil || deps.Sink == nil {
		return nil, errors.New("runner: loader, writer and error sink are required")
	}
	adapters := make(map[collector.SourceID]collector.Adapter, len(deps.Adapters))
	for _, a := range deps.Adapters {
		adapters[a.Source()] = a
	}
	filtered := Filter(plan, active)
	for _, e := range filtered {
		if _, ok := adapters[e.Source]; !ok {
			return nil, fmt.Errorf("runner: source %s is active but has no adapter", e.Source)
		}
	}
	if deps.Pacer == nil {
		deps.Pacer = pacing.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = system.Clock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{
		plan:     filtered,
		adapters: adapters,
		deps:     deps,
		logger:   deps.Logger.Named("runner"),
	}, nil
}

// Plan returns the active entries in run order.
func (o *Orchestrator) Plan() []PlanEntry {
	return append([]PlanEntry(nil), o.plan...)
}

// Run executes one full collection. Only an empty catalog is fatal; every
// source, batch and write failure is logged to the error sink and the run
// carries on to DONE.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{StartedAt: o.deps.Clock.Now()}
	summary.RunID = o.newRunID()
	logger := o.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("run started", zap.Int("plan_entries", len(o.plan)))

	catalog := o.deps.Loader.Load()
	if catalog.Empty() {
		return summary, collector.ErrNoKeywords
	}

	for _, table := range replaceTables(o.plan) {
		if err := o.deps.Writer.Clear(ctx, table); err != nil {
			logger.Warn("clear destination failed", zap.String("table", table.Name), zap.Error(err))
			o.logError(ctx, &summary, writerSource, err.Error())
		}
	}

	scraped := false
	for _, e := range o.plan {
		if ctx.Err() != nil {
			summary.Canceled = true
			logger.Warn("run canceled", zap.Error(ctx.Err()))
			break
		}
		kws, _ := catalog.Keywords(e.Category)
		if len(kws) == 0 {
			logger.Info("category has no keywords, skipping",
				zap.String("source", string(e.Source)),
				zap.String("category", e.Category),
			)
			summary.Categories = append(summary.Categories, CategoryOutcome{
				Source: e.Source, Category: e.Category, Table: e.Table.Name, Status: StatusSkipped,
			})
			metrics.ObserveCategory(string(e.Source), metrics.OutcomeEmpty)
			continue
		}
		if scraped {
			o.deps.Pacer.Pace(ctx)
		}
		scraped = true

		outcome := o.scrape(ctx, logger, &summary, e, kws, o.deps.Writer.Append)
		summary.Categories = append(summary.Categories, outcome)
		summary.RowsWritten += outcome.Rows
	}

	summary.FinishedAt = o.deps.Clock.Now()
	metrics.ObserveRun(summary.FinishedAt.Sub(summary.StartedAt), summary.FinishedAt)
	logger.Info("run done",
		zap.Int("rows_written", summary.RowsWritten),
		zap.Int("errors_logged", summary.ErrorsLogged),
		zap.Int("categories_failed", summary.Failed()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	o.finish(ctx, logger, summary)
	return summary, nil
}

// RunOne scrapes a single category with one source and writes it using the
// table's own mode. Nothing else is cleared.
func (o *Orchestrator) RunOne(ctx context.Context, source collector.SourceID, category string) (CategoryOutcome, error) {
	e, ok := Lookup(DefaultPlan(), source, category)
	if !ok {
		return CategoryOutcome{}, fmt.Errorf("no destination for %s/%s", source, category)
	}
	if _, ok := o.adapters[source]; !ok {
		return CategoryOutcome{}, fmt.Errorf("source %s has no adapter", source)
	}
	catalog := o.deps.Loader.Load()
	kws, _ := catalog.Keywords(category)
	if len(kws) == 0 {
		return CategoryOutcome{}, fmt.Errorf("category %q: %w", category, collector.ErrNoKeywords)
	}
	var summary RunSummary
	logger := o.logger.With(zap.String("run_id", o.newRunID()))
	return o.scrape(ctx, logger, &summary, e, kws, o.deps.Writer.Write), nil
}

type writeFunc func(ctx context.Context, table collector.Table, rows []collector.Row) error

func (o *Orchestrator) scrape(
	ctx context.Context,
	logger *zap.Logger,
	summary *RunSummary,
	e PlanEntry,
	kws []string,
	write writeFunc,
) CategoryOutcome {
	logger = logger.With(zap.String("source", string(e.Source)), zap.String("category", e.Category))
	outcome := CategoryOutcome{Source: e.Source, Category: e.Category, Table: e.Table.Name}

	res := o.adapters[e.Source].Fetch(ctx, e.Category, kws)
	outcome.Batches = res.Batches
	outcome.Failures = len(res.Failures)
	for _, f := range res.Failures {
		o.logError(ctx, summary, string(e.Source), f.Error())
	}

	switch {
	case res.Failed():
		outcome.Status = StatusFailed
		logger.Warn("every batch in category failed", zap.Int("failures", outcome.Failures))
	case len(res.Rows) == 0:
		outcome.Status = StatusFailed
		logger.Warn("category produced no rows")
	default:
		if err := write(ctx, e.Table, res.Rows); err != nil {
			outcome.Status = StatusWriteFailed
			logger.Error("write failed", zap.String("table", e.Table.Name), zap.Error(err))
			o.logError(ctx, summary, string(e.Source), fmt.Sprintf("write %s for category %q: %v", e.Table.Name, e.Category, err))
			break
		}
		outcome.Rows = len(res.Rows)
		outcome.Status = StatusOK
		if outcome.Failures > 0 {
			outcome.Status = StatusPartial
		}
		logger.Info("category written",
			zap.String("table", e.Table.Name),
			zap.Int("rows", outcome.Rows),
			zap.Int("failures", outcome.Failures),
		)
	}

	metricOutcome := metrics.OutcomeSuccess
	if outcome.Status == StatusFailed || outcome.Status == StatusWriteFailed {
		metricOutcome = metrics.OutcomeFailure
	}
	metrics.ObserveCategory(string(e.Source), metricOutcome)
	return outcome
}

func (o *Orchestrator) logError(ctx context.Context, summary *RunSummary, source, message string) {
	o.deps.Sink.LogError(ctx, source, message)
	summary.ErrorsLogged++
}

func (o *Orchestrator) newRunID() string {
	if o.deps.IDs == nil {
		return ""
	}
	id, err := o.deps.IDs.NewID()
	if err != nil {
		o.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

// finish publishes the summary and runs the post-run hook. Neither can fail
// the run.
func (o *Orchestrator) finish(ctx context.Context, logger *zap.Logger, summary RunSummary) {
	// A canceled run still reports; give the notifications their own deadline.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if o.deps.Publisher != nil {
		id, err := o.deps.Publisher.Publish(notifyCtx, summary)
		if err != nil {
			logger.Warn("run summary publish failed", zap.Error(err))
		} else {
			logger.Info("run summary published", zap.String("message_id", id))
		}
	}
	if o.deps.AfterRun != nil {
		if err := o.deps.AfterRun(notifyCtx, summary); err != nil {
			logger.Warn("post-run hook failed", zap.Error(err))
		}
	}
}
