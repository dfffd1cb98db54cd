// Package cli implements the ekaya-migrate command line: the HTTP and MCP
// server plus maintenance commands for the persisted wizard state.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	version    string
	configPath string
	output     string
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	rootCmd := newRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	rootCmd := &cobra.Command{
		Use:           "ekaya-migrate",
		Short:         "Migration progress tracker",
		Long:          "ekaya-migrate tracks a data migration project through upload, discovery, mapping, codegen and validation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("unknown output format %q (want table or json)", opts.output)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format (table, json)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newResetCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

// loadConfig reads configuration and builds the logger it asks for.
func (o *rootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(o.configPath, o.version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
