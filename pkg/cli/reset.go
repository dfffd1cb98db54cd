package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted wizard state",
		Long:  "Delete the wizard state stored under the configured storage key. The next server start uses the initial-state policy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete wizard state without --yes")
			}

			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear wizard state: %w", err)
			}

			if opts.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"key": cfg.Storage.Key, "cleared": true})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared wizard state %q\n", cfg.Storage.Key)
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
