// Package cmd defines the trendcollector CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/app"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/config"
	"github.com/JakeFAU/bag-trend-collector/internal/keywords"
	"github.com/JakeFAU/bag-trend-collector/internal/logging"
	"github.com/JakeFAU/bag-trend-collector/internal/runner"
)

// contextKey is the key type for values stored in the command context.
type contextKey string

const (
	appKey    contextKey = "app"
	configKey contextKey = "config"
)

// skipApp marks commands that only need configuration.
const skipApp = "skip-app"

// App is what the commands use from the service container. It is an
// interface so tests can inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	Orchestrator(ctx context.Context, sources []collector.SourceID) (*runner.Orchestrator, error)
	Syncer(ctx context.Context) (*keywords.Syncer, func() error, error)
}

// newApp is the application factory. It is a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates the root command. Without a subcommand it runs the full
// collection pipeline.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "trendcollector",
		Short: "Collects search-interest, price and visual-trend signals for handbag keywords.",
		Long: `trendcollector runs the keyword catalog through every active source and
writes the normalized signals to the destination tables. Source failures are
written to the error log and never stop the run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Build the configuration and the application before any RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dryRun {
				cfg.DryRun = true
			}
			ctx := context.WithValue(cmd.Context(), configKey, cfg)
			if cmd.Annotations[skipApp] != "" {
				cmd.SetContext(ctx)
				return nil
			}

			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			appInstance, err := newApp(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(ctx, appKey, appInstance))
			return nil
		},

		// Shut services down once the command returns.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},

		RunE: runPipeline,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./trendcollector.yaml or $HOME/.trendcollector/)")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "keep tables and notifications in memory")

	cmd.AddCommand(newSourceCmd())
	cmd.AddCommand(newSyncKeywordsCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	appInstance, cfg, err := resolve(cmd.Context())
	if err != nil {
		return err
	}
	orchestrator, err := appInstance.Orchestrator(cmd.Context(), cfg.ActiveSources())
	if err != nil {
		return err
	}
	plan := orchestrator.Plan()
	tables := make([]string, 0, len(plan))
	for _, e := range plan {
		tables = append(tables, e.Table.Name)
	}
	appInstance.Logger().Info("collection planned",
		zap.Strings("tables", tables),
		zap.Bool("dry_run", cfg.DryRun),
	)
	summary, err := orchestrator.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	appInstance.Logger().Info("collection finished",
		zap.String("run_id", summary.RunID),
		zap.Int("rows_written", summary.RowsWritten),
		zap.Int("errors_logged", summary.ErrorsLogged),
		zap.Bool("canceled", summary.Canceled),
	)
	return nil
}

func resolve(ctx context.Context) (App, config.Config, error) {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return nil, config.Config{}, err
	}
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, config.Config{}, errors.New("application services not initialized")
	}
	return appInstance, cfg, nil
}

func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute runs the CLI with a context canceled by SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger, lerr := logging.New(logging.Options{Development: true})
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
			os.Exit(1)
		}
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}
