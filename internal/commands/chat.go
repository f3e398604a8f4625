package commands

import (
	"github.com/spf13/cobra"

	"github.com/diogo/aichat/internal/chat"
	"github.com/diogo/aichat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	var pdfFlag bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

Answers stream in as they are generated. With --pdf, questions are answered
from the documents indexed with 'aichat upload'. Type /help inside the chat
for commands; Esc cancels a running request, Ctrl+C quits.`,
		Args: cobra.NoArgs,
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

			updates := tui.NewNotifier()
			session := a.session(client, chat.WithOnUpdate(updates.Notify))

			return deps.RunTUI(cmd.Context(), session, updates, tui.Options{
				PDFMode:   pdfFlag,
				Theme:     a.cfg.TUITheme,
				Markdown:  a.cfg.Markdown,
				Clipboard: deps.Clipboard,
				Store:     a.store,
			})
		},
	}

	cmd.Flags().BoolVar(&pdfFlag, "pdf", false, "Start in PDF mode")
	return cmd
}
