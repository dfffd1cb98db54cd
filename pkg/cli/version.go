package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ekaya-migrate version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version":    opts.version,
					"go_version": runtime.Version(),
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ekaya-migrate %s (%s)\n", opts.version, runtime.Version())
			return err
		},
	}
}
