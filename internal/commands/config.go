package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/render"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after applying the config file and environment
overrides (AICHAT_BASE_URL, AICHAT_TIMEOUT, AICHAT_RETRIEVAL_K,
AICHAT_VERBOSE, AICHAT_LOG_FILE, GLAMOUR_STYLE).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(a.cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(deps.Stdout, "# %s\n%s\n", path, data)

			if _, ok := render.TUIThemeByName(a.cfg.TUITheme); !ok {
				fmt.Fprintf(deps.Stderr, "Warning: unknown tui_theme %q, using %s\n", a.cfg.TUITheme, render.DefaultTUITheme)
			}
			return nil
		},
	}

	cmd.AddCommand(newConfigInitCmd(deps))
	return cmd
}

func newConfigInitCmd(deps *Dependencies) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.SaveConfig(config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Wrote "+path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
