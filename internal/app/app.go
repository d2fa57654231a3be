// Package app builds and holds the long-lived services of one process: the
// table store, the HTTP fetcher, the headless browser, the publisher and the
// metrics server. Commands get an App from the cobra context.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/config"
	"github.com/JakeFAU/bag-trend-collector/internal/errorsink"
	collyfetcher "github.com/JakeFAU/bag-trend-collector/internal/fetcher/colly"
	"github.com/JakeFAU/bag-trend-collector/internal/fetcher/headless"
	"github.com/JakeFAU/bag-trend-collector/internal/gcp"
	"github.com/JakeFAU/bag-trend-collector/internal/id/uuid"
	"github.com/JakeFAU/bag-trend-collector/internal/keywords"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
	"github.com/JakeFAU/bag-trend-collector/internal/pacing"
	"github.com/JakeFAU/bag-trend-collector/internal/policy/ratelimit"
	pubmemory "github.com/JakeFAU/bag-trend-collector/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/bag-trend-collector/internal/publisher/pubsub"
	"github.com/JakeFAU/bag-trend-collector/internal/runner"
	"github.com/JakeFAU/bag-trend-collector/internal/sources/marketplace"
	"github.com/JakeFAU/bag-trend-collector/internal/sources/searchinterest"
	"github.com/JakeFAU/bag-trend-collector/internal/sources/visualtrend"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/local"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/memory"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/postgres"
	"github.com/JakeFAU/bag-trend-collector/internal/writer"
)

type renderer interface {
	visualtrend.Renderer
	Close() error
}

// App holds the shared services. Adapters and their browser are built
// lazily so a run that never touches visual_trend never starts Chrome.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	clock   collector.Clock
	store   collector.TableStore
	fetcher *collyfetcher.Fetcher
	pacer   collector.Pacer
	server  *metrics.Server

	mu        sync.Mutex
	adapters  map[collector.SourceID]collector.Adapter
	renderer  renderer
	publisher *pubsubpublisher.Publisher
	recorded  *pubmemory.Publisher
}

// New builds an App from cfg. It fails fast when a required backend cannot
// be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DryRun {
		cfg.Storage.Backend = config.BackendMemory
	}
	logger.Info("initializing application services",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Strings("active_sources", cfg.Sources.Active),
		zap.Bool("dry_run", cfg.DryRun),
	)

	store, err := newTableStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.PerHostRPS, Burst: cfg.HTTP.PerHostBurst})
	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		store:  store,
		fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTPTimeout(),
			Transport: limiter.Transport,
		}),
		pacer:    pacing.New(cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay),
		adapters: make(map[collector.SourceID]collector.Adapter),
	}

	if cfg.Metrics.ListenAddr != "" {
		srv, err := metrics.Start(cfg.Metrics.ListenAddr, logger.Named("metrics"))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		a.server = srv
		logger.Info("metrics server listening", zap.String("addr", srv.Addr()))
	}

	logger.Info("application services initialized")
	return a, nil
}

func newTableStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (collector.TableStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory table store; rows are discarded at exit")
		return memory.NewTableStore(), nil
	case config.BackendLocal:
		logger.Info("using local CSV table store", zap.String("dir", cfg.Dir))
		store, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendPostgres:
		if cfg.MigrateOnStart {
			logger.Info("applying postgres migrations")
			if err := postgres.RunMigrations(cfg.DSN); err != nil {
				return nil, err
			}
		}
		logger.Info("connecting to postgres")
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the destination table store.
func (a *App) Store() collector.TableStore { return a.store }

// Keywords returns the keyword cache.
func (a *App) Keywords() *keywords.Store {
	return keywords.NewStore(a.cfg.Keywords.CachePath, a.logger)
}

// Adapter returns the adapter for source, building it on first use.
func (a *App) Adapter(source collector.SourceID) (collector.Adapter, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if adapter, ok := a.adapters[source]; ok {
		return adapter, nil
	}
	adapter, err := a.buildAdapter(source)
	if err != nil {
		return nil, err
	}
	a.adapters[source] = adapter
	return adapter, nil
}

func (a *App) buildAdapter(source collector.SourceID) (collector.Adapter, error) {
	src := a.cfg.Sources
	switch source {
	case collector.SourceSearchInterest:
		client := searchinterest.NewTrendsClient(a.fetcher, searchinterest.ClientConfig{
			BaseURL: src.SearchInterest.BaseURL,
			HL:      src.SearchInterest.HL,
			TZ:      src.SearchInterest.TZ,
			Geo:     src.SearchInterest.Geo,
		}, a.logger)
		return searchinterest.New(client, searchinterest.Options{
			LookbackDays: src.SearchInterest.LookbackDays,
			Pacer:        a.pacer,
			Clock:        a.clock,
			Logger:       a.logger,
		}), nil
	case collector.SourceMarketplace:
		client := marketplace.NewEbayClient(a.fetcher, marketplace.ClientConfig{
			BaseURL:     src.Marketplace.BaseURL,
			MinPrice:    src.Marketplace.MinPrice,
			MaxListings: src.Marketplace.MaxListings,
		})
		return marketplace.New(client, marketplace.Options{
			Qualifier: src.Marketplace.Qualifier,
			Pacer:     a.pacer,
			Clock:     a.clock,
			Logger:    a.logger,
		}), nil
	case collector.SourceVisualTrend:
		r, err := a.newRenderer(src.VisualTrend)
		if err != nil {
			return nil, err
		}
		a.renderer = r
		return visualtrend.New(r, visualtrend.Options{
			BaseURL: src.VisualTrend.BaseURL,
			Pacer:   a.pacer,
			Clock:   a.clock,
			Logger:  a.logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func (a *App) newRenderer(cfg config.VisualTrendConfig) (renderer, error) {
	if cfg.DisableBrowser {
		a.logger.Warn("headless browser disabled; visual trend keywords will be logged as failures")
		return headless.NewNoop(), nil
	}
	r, err := headless.NewChromedp(headless.Config{
		MaxParallel:       1,
		UserAgent:         a.cfg.HTTP.UserAgent,
		NavigationTimeout: time.Duration(cfg.NavTimeoutSeconds) * time.Second,
		SettleDelay:       time.Duration(cfg.SettleMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init headless renderer: %w", err)
	}
	return r, nil
}

// Orchestrator builds a runner over the given sources.
func (a *App) Orchestrator(ctx context.Context, sources []collector.SourceID) (*runner.Orchestrator, error) {
	adapters := make([]collector.Adapter, 0, len(sources))
	for _, id := range sources {
		adapter, err := a.Adapter(id)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	deps := runner.Deps{
		Adapters: adapters,
		Loader:   a.Keywords(),
		Writer:   writer.New(a.store, a.logger),
		Sink:     errorsink.New(a.store, a.clock, a.logger),
		Pacer:    a.pacer,
		Clock:    a.clock,
		IDs:      uuid.New(),
		Logger:   a.logger,
	}
	if a.cfg.DryRun {
		// Notifications stay in process and nothing is pushed.
		rec := a.recorder()
		deps.Publisher = rec
		deps.AfterRun = func(_ context.Context, summary runner.RunSummary) error {
			a.logger.Info("dry run finished; notifications were not sent",
				zap.String("run_id", summary.RunID),
				zap.Int("recorded_messages", len(rec.Messages())),
			)
			return nil
		}
		return runner.New(runner.DefaultPlan(), sources, deps)
	}
	if a.cfg.Notify.Topic != "" {
		pub, err := a.pubsub(ctx)
		if err != nil {
			return nil, err
		}
		deps.Publisher = pub
	}
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		job := a.cfg.Metrics.JobName
		deps.AfterRun = func(ctx context.Context, _ runner.RunSummary) error {
			return metrics.Push(ctx, url, job)
		}
	}
	return runner.New(runner.DefaultPlan(), sources, deps)
}

func (a *App) recorder() *pubmemory.Publisher {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recorded == nil {
		a.recorded = pubmemory.New()
	}
	return a.recorded
}

func (a *App) pubsub(ctx context.Context) (*pubsubpublisher.Publisher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publisher != nil {
		return a.publisher, nil
	}
	opts, err := gcp.ClientOptions(a.cfg.Google)
	if err != nil {
		return nil, err
	}
	a.logger.Info("connecting to pub/sub", zap.String("topic", a.cfg.Notify.Topic))
	pub, err := pubsubpublisher.Connect(ctx, a.cfg.Google.ProjectID, a.cfg.Notify.Topic,
		map[string]string{"event": "run_done"}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize publisher: %w", err)
	}
	a.publisher = pub
	return pub, nil
}

// Syncer builds the keyword syncer for the configured remote. The returned
// close func releases any client it opened.
func (a *App) Syncer(ctx context.Context) (*keywords.Syncer, func() error, error) {
	noop := func() error { return nil }
	remoteCfg := a.cfg.Keywords.Remote
	var remote keywords.Remote
	closeFn := noop
	switch remoteCfg.Kind {
	case config.RemoteSheet:
		remote = keywords.NewSheetRemote(a.fetcher, remoteCfg.URL)
	case config.RemoteGCS:
		opts, err := gcp.ClientOptions(a.cfg.Google)
		if err != nil {
			return nil, noop, err
		}
		client, err := gcs.NewClient(ctx, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("create storage client: %w", err)
		}
		r, err := keywords.NewGCSRemote(client, remoteCfg.Bucket, remoteCfg.Object)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		remote, closeFn = r, client.Close
	case "":
		return nil, noop, fmt.Errorf("keywords.remote.kind is not configured")
	default:
		return nil, noop, fmt.Errorf("unknown keyword remote %q", remoteCfg.Kind)
	}
	return keywords.NewSyncer(remote, a.cfg.Keywords.CachePath, a.clock, a.logger), closeFn, nil
}

// Close shuts down every service the App opened.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("error stopping metrics server", zap.Error(err))
		}
		cancel()
	}
	a.mu.Lock()
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.logger.Warn("error closing headless renderer", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	a.mu.Unlock()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing table store", zap.Error(err))
	}
	// Sync fails on some terminals; nothing useful can be done about it.
	_ = a.logger.Sync()
}
