package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted wizard state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			state, err := store.Load(cmd.Context())
			if errors.Is(err, apperrors.ErrNotFound) {
				if opts.output == outputJSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{"key": cfg.Storage.Key, "state": nil})
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "No wizard state persisted under key %q\n", cfg.Storage.Key)
				return err
			}
			if err != nil {
				return fmt.Errorf("failed to load wizard state: %w", err)
			}

			if opts.output == outputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"key": cfg.Storage.Key, "state": state})
			}
			return printStateTable(cmd, cfg, state)
		},
	}
}

func printStateTable(cmd *cobra.Command, cfg *config.Config, state *models.PersistedState) error {
	data := pterm.TableData{
		{"Field", "Value"},
		{"Storage", cfg.Storage.Backend + " / " + cfg.Storage.Key},
		{"Current phase", string(state.CurrentPhase)},
		{"User", userLabel(state.UserProfile)},
	}

	if p := state.CurrentProject; p != nil {
		var completed []string
		for _, phase := range p.Progress.CompletedPhases.List() {
			completed = append(completed, string(phase))
		}
		data = append(data,
			[]string{"Project", p.Name},
			[]string{"Project ID", p.ID.String()},
			[]string{"Status", string(p.Status)},
			[]string{"Dialects", p.SourceDialect + " -> " + p.TargetDialect},
			[]string{"Completed phases", strings.Join(completed, ", ")},
			[]string{"Updated", p.UpdatedAt.Format("2006-01-02 15:04:05 MST")},
		)
		if p.FailureReason != "" {
			data = append(data, []string{"Failure reason", p.FailureReason})
		}
	} else {
		data = append(data, []string{"Project", "(none)"})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
	return err
}

func userLabel(u models.UserProfile) string {
	if !u.Authenticated {
		return u.Name + " (anonymous)"
	}
	if u.Email != "" {
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	return u.Name
}
