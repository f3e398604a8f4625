package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/aichat/internal/chat"
	"github.com/diogo/aichat/internal/config"
	apierrors "github.com/diogo/aichat/internal/errors"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorFollowup = lipgloss.Color("#bb9af7")
	colorError    = lipgloss.Color("#f7768e")
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	followupTitleStyle = lipgloss.NewStyle().
				Foreground(colorFollowup).
				Bold(true).
				MarginTop(1)

	followupStyle = lipgloss.NewStyle().
			Foreground(colorFollowup).
			PaddingLeft(2)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorError)
)

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner writing to w
func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.halt()
	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	fmt.Fprintf(s.w, "%s %s\n", checkmark, successStyle.Render(message))
}

// stopWithError stops the spinner without a message
func (s *spinner) stopWithError() {
	s.halt()
}

func (s *spinner) halt() {
	s.stopOnce()
	<-s.done
}

// startSpinner starts a spinner on w when w is a terminal, and returns a
// function that stops it. The returned function is safe to call more than
// once.
func startSpinner(w io.Writer, message string) func() {
	if !isTerminal(w) {
		return func() {}
	}
	s := newSpinner(w, message)
	s.start()
	return s.stopWithError
}

// streamPrinter writes a streamed answer to w as it grows
type streamPrinter struct {
	w       io.Writer
	onFirst func()

	mu      sync.Mutex
	printed string
}

// write receives the accumulated answer and prints the new suffix
func (p *streamPrinter) write(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(text) <= len(p.printed) || !strings.HasPrefix(text, p.printed) {
		return
	}
	if p.printed == "" && p.onFirst != nil {
		p.onFirst()
	}
	fmt.Fprint(p.w, text[len(p.printed):])
	p.printed = text
}

func (p *streamPrinter) text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed
}

type queryOptions struct {
	model        string
	systemPrompt string
	output       string
	copy         bool
}

// runQuery sends prompt once and streams the answer to stdout
func (d *Dependencies) runQuery(ctx context.Context, a *app, prompt string, opts queryOptions) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return apierrors.ErrEmptyInput
	}
	if opts.model != "" {
		a.settings.Model = opts.model
	}
	if opts.systemPrompt != "" {
		a.settings.SystemPrompt = opts.systemPrompt
	}
	if !a.settings.HasAPIKey() {
		fmt.Fprintln(d.Stderr, formatErrorMessage(apierrors.ErrMissingAPIKey, "Cannot send"))
		return apierrors.ErrMissingAPIKey
	}

	client, err := d.client(a)
	if err != nil {
		return err
	}

	stopSpinner := startSpinner(d.Stderr, "Waiting for "+a.settings.Model)
	defer stopSpinner()

	printer := &streamPrinter{w: d.Stdout, onFirst: stopSpinner}
	session := a.session(client, chat.WithOnText(printer.write))

	start := time.Now()
	err = session.Send(ctx, prompt)
	stopSpinner()
	a.logger.Sugar().Debugf("query finished in %s", time.Since(start).Round(time.Millisecond))

	text := printer.text()
	if err != nil {
		if text != "" {
			fmt.Fprintln(d.Stdout)
		}
		fmt.Fprintln(d.Stderr, formatErrorMessage(err, "Request failed"))
		return err
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(d.Stdout)
	}

	if opts.copy || a.cfg.CopyToClipboard {
		if err := d.Clipboard(text); err != nil {
			fmt.Fprintln(d.Stderr, warnStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			fmt.Fprintln(d.Stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintln(d.Stderr, successStyle.Render(fmt.Sprintf("✓ Response saved to %s", opts.output)))
	}

	return nil
}

// readPrompt returns the prompt from the file flag, piped stdin, or the
// first argument, in that order
func (d *Dependencies) readPrompt(file string, args []string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if hasPipedInput(d.Stdin) {
		data, err := io.ReadAll(d.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) != "" {
			return string(data), true, nil
		}
	}

	if len(args) > 0 {
		return strings.Join(args, " "), true, nil
	}
	return "", false, nil
}

// hasPipedInput reports whether r has data that did not come from a
// terminal
func hasPipedInput(r io.Reader) bool {
	if r == nil {
		return false
	}
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// isTerminal reports whether w is connected to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	body := apierrors.GetErrorMessage(err)
	if body == "" {
		body = apierrors.GetResponseBody(err)
	}
	if body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(body, "\n", "\n  "))))
		return sb.String()
	}

	switch {
	case errors.Is(err, apierrors.ErrMissingAPIKey):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'aichat settings set-key' or set OPENAI_API_KEY"))
	case apierrors.IsCancelled(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The request was interrupted"))
	case apierrors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the backend is running (see 'aichat health')"))
	case apierrors.IsUploadError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check the file exists, is a PDF, and is under 50 MB"))
	}

	return sb.String()
}

// settingsPath returns a display path for the settings store
func settingsPath(store config.KVStore) string {
	if fs, ok := store.(*config.FileStore); ok {
		return fs.Path()
	}
	return "(in memory)"
}
