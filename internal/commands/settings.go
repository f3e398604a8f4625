package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/models"
)

// NewSettingsCmd creates the settings command and its subcommands
func NewSettingsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the API key, model and system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			printSettings(deps, a)
			return nil
		},
	}

	cmd.AddCommand(newSettingsSetCmd(deps), newSettingsSetKeyCmd(deps), newSettingsResetCmd(deps))
	return cmd
}

func printSettings(deps *Dependencies, a *app) {
	s := a.settings
	fmt.Fprintf(deps.Stdout, "API key:       %s\n", s.MaskedKey())
	fmt.Fprintf(deps.Stdout, "Model:         %s\n", s.Model)
	fmt.Fprintf(deps.Stdout, "System prompt: %s\n", s.SystemPrompt)
	fmt.Fprintf(deps.Stdout, "Stored in:     %s\n", settingsPath(a.store))
}

func newSettingsSetCmd(deps *Dependencies) *cobra.Command {
	var (
		apiKey       string
		model        string
		systemPrompt string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Long: `Change one or more settings. Every value is checked before anything is
saved; if one is invalid, nothing changes.

Available models: ` + strings.Join(modelIDs(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("api-key") && !flags.Changed("model") && !flags.Changed("system-prompt") {
				return errors.New("nothing to set: use --api-key, --model or --system-prompt")
			}

			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			// Start from what is stored, not the environment fallback key
			updated, err := config.LoadSettings(a.store)
			if err != nil {
				return err
			}

			if flags.Changed("api-key") {
				if strings.TrimSpace(apiKey) == "" {
					return errors.New("API key cannot be empty")
				}
				updated.APIKey = strings.TrimSpace(apiKey)
			}
			if flags.Changed("model") {
				if !models.IsKnownModel(model) {
					return fmt.Errorf("unknown model %q (available: %s)", model, strings.Join(modelIDs(), ", "))
				}
				updated.Model = model
			}
			if flags.Changed("system-prompt") {
				if strings.TrimSpace(systemPrompt) == "" {
					return errors.New("system prompt cannot be empty")
				}
				updated.SystemPrompt = systemPrompt
			}

			if err := config.SaveSettings(a.store, updated); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			a.settings = updated.WithFallbackKey(a.cfg.APIKey)

			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Settings saved"))
			printSettings(deps, a)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key")
	cmd.Flags().StringVar(&model, "model", "", "Model used for chat")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt sent with every message")
	return cmd
}

func newSettingsSetKeyCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Enter the API key without echoing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprint(deps.Stderr, "OpenAI API key: ")
			key, err := deps.ReadSecret()
			fmt.Fprintln(deps.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read key: %w", err)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("API key cannot be empty")
			}

			stored, err := config.LoadSettings(a.store)
			if err != nil {
				return err
			}
			stored.APIKey = key
			if err := config.SaveSettings(a.store, stored); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ API key saved ("+config.MaskKey(key)+")"))
			return nil
		},
	}
}

func newSettingsResetCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := config.ResetSettings(a.store); err != nil {
				return fmt.Errorf("failed to reset settings: %w", err)
			}
			fmt.Fprintln(deps.Stderr, successStyle.Render("✓ Settings reset to defaults"))
			return nil
		},
	}
}

func modelIDs() []string {
	available := models.AvailableModels()
	ids := make([]string, len(available))
	for i, m := range available {
		ids[i] = m.ID
	}
	return ids
}
