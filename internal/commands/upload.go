package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	apierrors "github.com/diogo/aichat/internal/errors"
)

// NewUploadCmd creates the upload command
func NewUploadCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Index a PDF for document questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := deps.client(a)
			if err != nil {
				return err
			}
			session := a.session(client)

			var spin *spinner
			if isTerminal(deps.Stderr) {
				spin = newSpinner(deps.Stderr, "Uploading "+filepath.Base(args[0]))
				spin.start()
			}

			status, err := session.Upload(cmd.Context(), args[0])
			if err != nil {
				if spin != nil {
					spin.stopWithError()
				}
				fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Upload failed"))
				return err
			}

			if spin != nil {
				spin.stopWithSuccess(status)
			} else {
				fmt.Fprintln(deps.Stdout, status)
			}
			return nil
		},
	}
}

// NewHealthCmd creates the health command
func NewHealthCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := deps.client(a)
			if err != nil {
				return err
			}

			status, err := client.Health(cmd.Context())
			if err != nil {
				label := "Backend at " + a.cfg.BaseURL + " is unhealthy"
				if apierrors.IsNetworkError(err) {
					label = "Backend at " + a.cfg.BaseURL + " is unreachable"
				}
				fmt.Fprintln(deps.Stderr, formatErrorMessage(err, label))
				return err
			}

			fmt.Fprintf(deps.Stdout, "%s %s: %s\n", successStyle.Render("✓"), a.cfg.BaseURL, status)
			return nil
		},
	}
}
