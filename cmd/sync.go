package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newSyncKeywordsCmd refreshes the keyword cache from the configured remote.
func newSyncKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-keywords",
		Short: "Refresh the keyword cache from the remote catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, _, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			syncer, closeRemote, err := appInstance.Syncer(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeRemote(); cerr != nil {
					appInstance.Logger().Warn("failed to close remote client", zap.Error(cerr))
				}
			}()

			catalog, err := syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("keywords synced", zap.Strings("categories", catalog.Names()))
			return nil
		},
	}
}
