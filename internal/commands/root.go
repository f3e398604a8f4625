// Package commands provides CLI commands for aichat.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd creates the aichat command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}

	var (
		outputFlag string
		fileFlag   string
		modelFlag  string
		systemFlag string
		copyFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "aichat [prompt]",
		Short: "Streaming chat client for an OpenAI-backed chat service",
		Long: `aichat talks to a chat backend that streams model answers and can answer
questions from uploaded PDF documents.

Examples:
  aichat chat                           Start interactive chat
  aichat chat --pdf                     Chat against uploaded documents
  aichat settings set-key               Store your OpenAI API key
  aichat upload report.pdf              Index a PDF
  aichat ask-pdf "Summarize the report" Ask the uploaded documents
  aichat "What is Go?"                  Send a single query
  aichat -f prompt.md                   Read prompt from file
  cat prompt.md | aichat                Read prompt from stdin
  aichat "Hello" -o response.md         Save response to file`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "aichat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := deps.readPrompt(fileFlag, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}

			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return deps.runQuery(cmd.Context(), a, prompt, queryOptions{
				model:        modelFlag,
				systemPrompt: systemFlag,
				output:       outputFlag,
				copy:         copyFlag,
			})
		},
	}

	cmd.PersistentFlags().String("base-url", "", "Backend base URL (overrides config)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model to use for this query")
	cmd.Flags().StringVarP(&systemFlag, "system", "s", "", "System prompt for this query")
	cmd.Flags().BoolVar(&copyFlag, "copy", false, "Copy the response to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.AddCommand(
		NewChatCmd(deps),
		NewAskPDFCmd(deps),
		NewUploadCmd(deps),
		NewHealthCmd(deps),
		NewSettingsCmd(deps),
		NewConfigCmd(deps),
	)

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(nil)

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
