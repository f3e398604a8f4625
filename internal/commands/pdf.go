package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/render"
)

// NewAskPDFCmd creates the ask-pdf command
func NewAskPDFCmd(deps *Dependencies) *cobra.Command {
	var kFlag int

	cmd := &cobra.Command{
		Use:   "ask-pdf [question]",
		Short: "Ask a question about the uploaded PDFs",
		Long: `Ask a question answered from the documents indexed with 'aichat upload'.
The answer is printed with suggested follow-up questions.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, ok, err := deps.readPrompt("", args)
			if err != nil {
				return err
			}
			if !ok {
				return apierrors.ErrEmptyInput
			}

			a, err := deps.load(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if kFlag > 0 {
				a.cfg.RetrievalK = kFlag
			}
			if !a.settings.HasAPIKey() {
				fmt.Fprintln(deps.Stderr, formatErrorMessage(apierrors.ErrMissingAPIKey, "Cannot ask"))
				return apierrors.ErrMissingAPIKey
			}

			client, err := deps.client(a)
			if err != nil {
				return err
			}
			session := a.session(client)

			stopSpinner := startSpinner(deps.Stderr, "Searching documents")
			err = session.AskPDF(cmd.Context(), question)
			stopSpinner()
			if err != nil {
				fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Question failed"))
				return err
			}

			_, answer, _ := session.Conversation().LastAssistant()

			text := answer.Content
			if isTerminal(deps.Stdout) {
				width := getTerminalWidth(deps.Stdout) - 4
				text = render.MarkdownOrPlain(text, render.FromMarkdownConfig(a.cfg.Markdown, width))
				fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Answer"))
			}
			fmt.Fprintln(deps.Stdout, text)

			if answer.HasFollowups() {
				fmt.Fprintln(deps.Stdout, followupTitleStyle.Render("Follow-up questions:"))
				for i, f := range answer.Followups {
					fmt.Fprintln(deps.Stdout, followupStyle.Render(fmt.Sprintf("%d. %s", i+1, f)))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&kFlag, "chunks", "k", 0, "Number of document chunks to retrieve")
	return cmd
}
