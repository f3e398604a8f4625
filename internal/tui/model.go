package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/aichat/internal/chat"
	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/conversation"
	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/history"
	"github.com/diogo/aichat/internal/render"
)

const missingKeyHint = "No API key set. Add one in /settings (or run 'aichat settings set-key')."

// Message types for the TUI
type (
	// conversationUpdatedMsg is delivered once per burst of conversation changes
	conversationUpdatedMsg struct{}

	requestDoneMsg struct {
		err error
	}

	uploadDoneMsg struct {
		status string
		err    error
	}
)

// Notifier carries conversation changes from request goroutines to the UI.
// Notify never blocks; changes made while a signal is pending collapse into
// that signal.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a Notifier. Pass its Notify method to chat.WithOnUpdate.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify signals a change
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// wait blocks until the next change. It must be re-armed after every
// conversationUpdatedMsg.
func (n *Notifier) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-n.ch:
			return conversationUpdatedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusWarning
	statusError
)

// Options configures the chat model
type Options struct {
	PDFMode  bool
	Theme    string
	Markdown config.MarkdownConfig

	// Store persists settings saved from the settings panel. Without one,
	// saved settings last for this session only.
	Store config.KVStore

	// Clipboard defaults to the system clipboard
	Clipboard func(string) error
	// Now stamps exported transcripts
	Now func() time.Time
}

// Model represents the TUI state
type Model struct {
	ctx     context.Context
	session *chat.Session
	updates *Notifier
	opts    Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Settings panel
	settingsOpen bool
	panel        settingsPanel
	fallbackKey  string

	// markdown holds rendered assistant messages between refreshes
	markdown *markdownCache

	// State
	pdfMode    bool
	busy       bool
	uploading  bool
	follow     bool
	status     string
	statusKind statusKind
	ready      bool

	// Dimensions
	width  int
	height int
}

// NewModel creates a chat model bound to session. updates must be the
// Notifier whose Notify method the session calls on every change.
func NewModel(ctx context.Context, session *chat.Session, updates *Notifier, opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Markdown.Style == "" {
		opts.Markdown = config.DefaultMarkdownConfig()
	}
	ApplyTheme(opts.Theme)

	ta := textarea.New()
	ta.Placeholder = "Ask anything, or /help for commands..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline = newlineKeys
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctx:      ctx,
		session:  session,
		updates:  updates,
		opts:     opts,
		textarea: ta,
		spinner:  s,
		pdfMode:  opts.PDFMode,
		follow:   true,
		markdown: newMarkdownCache(),
	}
	if opts.Store != nil {
		// A key the session has but the store lacks came from the environment
		if stored, err := config.LoadSettings(opts.Store); err == nil && !stored.HasAPIKey() {
			m.fallbackKey = session.Settings().APIKey
		}
	}
	if !session.Settings().HasAPIKey() {
		m.setStatus(statusWarning, missingKeyHint)
		m.openSettings()
	}
	return m
}

// openSettings shows the settings panel with a draft of the saved settings
func (m *Model) openSettings() {
	draft := m.session.Settings()
	if m.opts.Store != nil {
		if stored, err := config.LoadSettings(m.opts.Store); err == nil {
			draft = stored
		}
	}
	m.panel = newSettingsPanel(draft, m.contentWidth())
	m.settingsOpen = true
	m.textarea.Blur()
}

func (m *Model) closeSettings() {
	m.settingsOpen = false
	if !m.busy {
		m.textarea.Focus()
	}
}

// updateSettings routes a key to the open settings panel
func (m Model) updateSettings(msg tea.KeyMsg) (Model, tea.Cmd) {
	var action settingsAction
	var cmd tea.Cmd
	m.panel, action, cmd = m.panel.Update(msg)

	switch action {
	case settingsCancel:
		m.closeSettings()
		if !m.session.Settings().HasAPIKey() {
			m.setStatus(statusWarning, missingKeyHint)
		}
	case settingsSave:
		m.saveSettings(m.panel.draft)
	}
	m.layout()
	return m, cmd
}

// saveSettings persists draft in one write and applies it to the session
func (m *Model) saveSettings(draft config.Settings) {
	if m.opts.Store != nil {
		if err := config.SaveSettings(m.opts.Store, draft); err != nil {
			m.panel.err = "Save failed: " + err.Error()
			return
		}
	}
	m.session.SetSettings(draft.WithFallbackKey(m.fallbackKey))
	m.closeSettings()

	switch {
	case !m.session.Settings().HasAPIKey():
		m.setStatus(statusWarning, missingKeyHint)
	case m.opts.Store == nil:
		m.setStatus(statusInfo, "Settings applied for this session.")
	default:
		m.setStatus(statusInfo, "Settings saved.")
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.updates.wait(m.ctx),
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.contentWidth(), 5)
			m.ready = true
		}
		if m.settingsOpen {
			m.panel.setWidth(m.contentWidth())
		}
		m.layout()
		m.refresh()

	case tea.KeyMsg:
		if m.settingsOpen && msg.String() != "ctrl+c" {
			return m.updateSettings(msg)
		}
		switch msg.String() {
		case "ctrl+c":
			m.session.Cancel()
			return m, tea.Quit

		case "esc":
			if m.busy {
				m.session.Cancel()
				m.setStatus(statusInfo, "Cancelling...")
				return m, nil
			}
			return m, tea.Quit

		case "ctrl+l":
			m.clear()
			m.layout()
			return m, nil

		case "ctrl+r":
			m, cmd = m.regenerate(0)
			m.layout()
			return m, cmd

		case "pgup", "pgdown":
			m.follow = false
			m.viewport, cmd = m.viewport.Update(msg)
			if m.viewport.AtBottom() {
				m.follow = true
			}
			return m, cmd

		case "enter":
			m, cmd = m.submit()
			m.layout()
			return m, cmd
		}

	case conversationUpdatedMsg:
		m.refresh()
		return m, m.updates.wait(m.ctx)

	case requestDoneMsg:
		m.busy = false
		m.textarea.Focus()
		m.handleRequestError(msg.err)
		m.layout()
		m.refresh()

	case uploadDoneMsg:
		m.uploading = false
		kind := statusInfo
		if msg.err != nil {
			kind = statusError
		}
		m.setStatus(kind, msg.status)
		m.layout()

	case spinner.TickMsg:
		if m.busy || m.uploading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only keys reach the textarea, and only while no request is running
	if !m.busy {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// submit handles Enter: a slash command or a message to send
func (m Model) submit() (Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	if isCommand(input) {
		m.textarea.Reset()
		return m.runCommand(input)
	}
	if !m.canStart() {
		return m, nil
	}

	m.textarea.Reset()
	if m.pdfMode {
		return m.start(func(ctx context.Context) error {
			return m.session.AskPDF(ctx, input)
		})
	}
	return m.start(func(ctx context.Context) error {
		return m.session.Send(ctx, input)
	})
}

// canStart applies the busy and missing-key guards, leaving a hint in the
// status line when a request may not start
func (m *Model) canStart() bool {
	if m.busy {
		m.setStatus(statusWarning, "A request is already in progress. Press Esc to cancel it.")
		return false
	}
	if !m.session.Settings().HasAPIKey() {
		m.setStatus(statusWarning, missingKeyHint)
		m.openSettings()
		return false
	}
	return true
}

// start runs fn in the background and marks the model busy until it returns
func (m Model) start(fn func(context.Context) error) (Model, tea.Cmd) {
	m.busy = true
	m.follow = true
	m.clearStatus()
	m.textarea.Blur()

	ctx := m.ctx
	run := func() tea.Msg {
		return requestDoneMsg{err: fn(ctx)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// regenerate re-asks message n (1-based), or the last answer when n is 0
func (m Model) regenerate(n int) (Model, tea.Cmd) {
	if !m.canStart() {
		return m, nil
	}
	return m.start(func(ctx context.Context) error {
		if n == 0 {
			return m.session.RegenerateLast(ctx)
		}
		return m.session.Regenerate(ctx, n-1)
	})
}

func (m *Model) clear() {
	if err := m.session.Clear(); err != nil {
		m.setStatus(statusWarning, "Cannot clear while a request is in progress.")
		return
	}
	m.follow = true
	m.setStatus(statusInfo, "Conversation cleared.")
	m.refresh()
}

func (m Model) runCommand(input string) (Model, tea.Cmd) {
	cmd, err := parseCommand(input)
	if err != nil {
		m.setStatus(statusWarning, err.Error())
		return m, nil
	}

	conv := m.session.Conversation()

	switch cmd.kind {
	case cmdClear:
		m.clear()

	case cmdRegen:
		return m.regenerate(cmd.n)

	case cmdPDF:
		m.pdfMode = !m.pdfMode
		if m.pdfMode {
			m.setStatus(statusInfo, "PDF mode on. Questions are answered from uploaded documents.")
		} else {
			m.setStatus(statusInfo, "PDF mode off.")
		}

	case cmdUpload:
		if m.uploading {
			m.setStatus(statusWarning, "An upload is already in progress.")
			return m, nil
		}
		m.uploading = true
		m.setStatus(statusInfo, "Uploading "+filepath.Base(cmd.arg)+"...")
		ctx, session, path := m.ctx, m.session, cmd.arg
		upload := func() tea.Msg {
			status, err := session.Upload(ctx, path)
			return uploadDoneMsg{status: status, err: err}
		}
		return m, tea.Batch(upload, m.spinner.Tick)

	case cmdFollowup:
		_, last, ok := conv.LastAssistant()
		if !ok || cmd.n > len(last.Followups) {
			m.setStatus(statusWarning, fmt.Sprintf("The latest answer has no follow-up %d.", cmd.n))
			return m, nil
		}
		if !m.canStart() {
			return m, nil
		}
		question := last.Followups[cmd.n-1]
		return m.start(func(ctx context.Context) error {
			return m.session.AskPDF(ctx, question)
		})

	case cmdCopy:
		_, last, ok := conv.LastAssistant()
		if !ok {
			m.setStatus(statusWarning, "Nothing to copy yet.")
			return m, nil
		}
		if err := m.opts.Clipboard(last.Content); err != nil {
			m.setStatus(statusError, "Copy failed: "+err.Error())
			return m, nil
		}
		m.setStatus(statusInfo, "Copied the latest answer to the clipboard.")

	case cmdExport:
		transcript := history.Transcript{
			ID:         conv.ID(),
			Model:      m.session.Settings().Model,
			ExportedAt: m.opts.Now(),
			Messages:   conv.Messages(),
		}
		if err := transcript.WriteFile(cmd.arg); err != nil {
			m.setStatus(statusError, "Export failed: "+err.Error())
			return m, nil
		}
		m.setStatus(statusInfo, fmt.Sprintf("Exported %d messages to %s", len(transcript.Messages), cmd.arg))

	case cmdSettings:
		m.clearStatus()
		m.openSettings()

	case cmdHelp:
		m.setStatus(statusInfo, helpText)

	case cmdQuit:
		m.session.Cancel()
		return m, tea.Quit
	}

	return m, nil
}

// handleRequestError reports errors the conversation does not already show.
// Backend failures are recorded inline as assistant messages.
func (m *Model) handleRequestError(err error) {
	switch {
	case err == nil:
	case apierrors.IsCancelled(err):
		m.setStatus(statusInfo, "Request cancelled.")
	case errors.Is(err, apierrors.ErrMissingAPIKey):
		m.setStatus(statusWarning, missingKeyHint)
		m.openSettings()
	case errors.Is(err, apierrors.ErrBusy),
		errors.Is(err, apierrors.ErrEmptyInput),
		errors.Is(err, conversation.ErrNoUserMessage),
		errors.Is(err, conversation.ErrNotAssistant),
		errors.Is(err, conversation.ErrOutOfRange),
		errors.Is(err, conversation.ErrTurnInProgress):
		m.setStatus(statusWarning, err.Error())
	default:
		m.setStatus(statusError, "Request failed.")
	}
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusKind = statusInfo
}

func (m Model) contentWidth() int {
	if m.width < 24 {
		return 20
	}
	return m.width - 4
}

// layout sizes the viewport to the space left by the other panels
func (m *Model) layout() {
	if !m.ready {
		return
	}
	width := m.contentWidth()

	headerHeight := 3 // one line plus border
	inputHeight := 5  // label, two textarea lines, border
	barHeight := 1
	statusHeight := 0
	if m.status != "" {
		statusHeight = lipgloss.Height(m.renderStatus())
	}

	vpHeight := m.height - headerHeight - inputHeight - barHeight - statusHeight - 2
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = width - 2
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(width - 4)
}

// refresh rebuilds the viewport content from the conversation
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() string {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}
	opts := render.FromMarkdownConfig(m.opts.Markdown, bubbleWidth-4)

	msgs := m.session.Conversation().Messages()
	for i, msg := range msgs {
		if i > 0 {
			content.WriteString("\n")
		}
		number := fmt.Sprintf("[%d] ", i+1)
		stamp := timestampStyle.Render(" " + msg.Timestamp)

		if msg.IsUser() {
			content.WriteString(userLabelStyle.Render(number+"You") + stamp + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Content))
		} else {
			content.WriteString(assistantLabelStyle.Render(number+"Assistant") + stamp + "\n")
			rendered := m.markdown.render(i, msg.Content, opts)
			content.WriteString(assistantBubbleStyle.Width(bubbleWidth).Render(rendered))

			if msg.HasFollowups() {
				content.WriteString("\n")
				content.WriteString(followupTitleStyle.Render("Follow-up questions (/f <n>)"))
				for n, f := range msg.Followups {
					content.WriteString("\n")
					content.WriteString(followupStyle.Render(fmt.Sprintf("%d. %s", n+1, f)))
				}
			}
		}
		content.WriteString("\n")
	}

	m.markdown.truncate(len(msgs))
	return content.String()
}

// markdownCache keeps the rendered markdown of each message by position, so
// a stream update renders only the message whose content changed
type markdownCache struct {
	renderFn func(string, render.Options) string
	opts     render.Options
	entries  []cachedMarkdown
}

type cachedMarkdown struct {
	content  string
	rendered string
	ok       bool
}

func newMarkdownCache() *markdownCache {
	return &markdownCache{renderFn: render.MarkdownOrPlain}
}

func (c *markdownCache) render(i int, content string, opts render.Options) string {
	if opts != c.opts {
		c.opts = opts
		c.entries = nil
	}
	for len(c.entries) <= i {
		c.entries = append(c.entries, cachedMarkdown{})
	}
	e := &c.entries[i]
	if !e.ok || e.content != content {
		*e = cachedMarkdown{content: content, rendered: c.renderFn(content, opts), ok: true}
	}
	return e.rendered
}

// truncate drops entries past n messages, e.g. after a clear
func (c *markdownCache) truncate(n int) {
	if len(c.entries) > n {
		c.entries = c.entries[:n]
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	width := m.contentWidth()
	if m.settingsOpen {
		sections := []string{m.renderHeader(width), m.panel.View(width)}
		if m.status != "" {
			sections = append(sections, m.renderStatus())
		}
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections := []string{
		m.renderHeader(width),
		messagesAreaStyle.Width(width).Render(m.viewport.View()),
	}

	var input string
	switch {
	case m.busy:
		input = m.spinner.View() + loadingStyle.Render(" Waiting for the assistant") +
			hintStyle.Render("  (Esc to cancel)")
	default:
		input = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render(m.inputLabel()),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(width).Render(input))

	if m.status != "" {
		sections = append(sections, m.renderStatus())
	}
	sections = append(sections, m.renderStatusBar(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) inputLabel() string {
	label := "You"
	if m.pdfMode {
		label = "You (PDF)"
	}
	if m.uploading {
		label += "  " + m.spinner.View() + " uploading"
	}
	return label
}

func (m Model) renderHeader(width int) string {
	settings := m.session.Settings()
	mode := "chat"
	if m.pdfMode {
		mode = "PDF"
	}
	sep := hintStyle.Render("  •  ")

	parts := []string{
		titleStyle.Render("✦ AI Chat"),
		sep,
		subtitleStyle.Render(settings.Model),
		sep,
		modeStyle.Render(mode),
		sep,
	}
	if settings.HasAPIKey() {
		parts = append(parts, subtitleStyle.Render("key "+settings.MaskedKey()))
	} else {
		parts = append(parts, warningStyle.UnsetPaddingLeft().Render("no API key"))
	}

	return headerStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, parts...))
}

func (m Model) renderStatus() string {
	switch m.statusKind {
	case statusWarning:
		return warningStyle.Render(m.status)
	case statusError:
		return errorStyle.Render(m.status)
	default:
		return statusLineStyle.Render(m.status)
	}
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	escDesc := "Quit"
	if m.busy {
		escDesc = "Cancel"
	}
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Alt+Enter", "Newline"},
		{"Esc", escDesc},
		{"Ctrl+R", "Regen"},
		{"Ctrl+L", "Clear"},
		{"PgUp/PgDn", "Scroll"},
		{"/help", "Commands"},
	}

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// Run starts the chat TUI and blocks until the user quits
func Run(ctx context.Context, session *chat.Session, updates *Notifier, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		NewModel(ctx, session, updates, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	session.Cancel()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
