package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

// newSourceCmd runs a single adapter against a single category.
func newSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <source_id> <category>",
		Short: "Scrape one category with one source",
		Long: `Runs one source adapter for one keyword category and writes the result
with the destination table's own semantics: snapshot tables are replaced,
history tables are appended to. No other table is touched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := collector.SourceID(args[0])
			if !source.Valid() {
				return fmt.Errorf("unknown source %q", args[0])
			}
			appInstance, _, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			orchestrator, err := appInstance.Orchestrator(cmd.Context(), []collector.SourceID{source})
			if err != nil {
				return err
			}
			outcome, err := orchestrator.RunOne(cmd.Context(), source, args[1])
			if err != nil {
				return err
			}
			appInstance.Logger().Info("source run finished",
				zap.String("source", string(outcome.Source)),
				zap.String("category", outcome.Category),
				zap.String("table", outcome.Table),
				zap.String("status", outcome.Status),
				zap.Int("rows", outcome.Rows),
				zap.Int("failures", outcome.Failures),
			)
			return nil
		},
	}
}
