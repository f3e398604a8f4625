package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/models"
)

// settingsView is the current view of the settings panel
type settingsView int

const (
	settingsMenu settingsView = iota
	settingsEditKey
	settingsSelectModel
	settingsEditPrompt
)

// Menu item indices
const (
	itemAPIKey = iota
	itemModel
	itemSystemPrompt
	itemSave
	itemCancel
	settingsItemCount
)

// settingsAction tells the chat model what the panel wants done
type settingsAction int

const (
	settingsNone settingsAction = iota
	settingsSave
	settingsCancel
)

// newlineKeys insert a line break in multi-line inputs; Enter submits
var newlineKeys = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))

// settingsPanel edits a draft of the API key, model and system prompt.
// Nothing is applied until the user picks Save.
type settingsPanel struct {
	draft config.Settings

	view        settingsView
	cursor      int
	modelCursor int

	keyInput    textinput.Model
	promptInput textarea.Model

	err string
}

func newSettingsPanel(current config.Settings, width int) settingsPanel {
	ki := textinput.New()
	ki.Placeholder = "sk-..."
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '•'
	ki.CharLimit = 256
	ki.Prompt = ""

	pi := textarea.New()
	pi.ShowLineNumbers = false
	pi.CharLimit = 4000
	pi.SetHeight(4)
	pi.KeyMap.InsertNewline = newlineKeys
	pi.FocusedStyle.CursorLine = lipgloss.NewStyle()
	pi.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	pi.BlurredStyle = pi.FocusedStyle

	p := settingsPanel{
		draft:       current,
		keyInput:    ki,
		promptInput: pi,
	}
	for i, m := range models.AvailableModels() {
		if m.ID == current.Model {
			p.modelCursor = i
			break
		}
	}
	p.setWidth(width)
	return p
}

func (p *settingsPanel) setWidth(width int) {
	w := width - 8
	if w < 20 {
		w = 20
	}
	p.keyInput.Width = w
	p.promptInput.SetWidth(w)
}

// Update handles a key while the panel is open
func (p settingsPanel) Update(msg tea.KeyMsg) (settingsPanel, settingsAction, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		p.commitEdit()
		return p.trySave()
	}

	switch p.view {
	case settingsEditKey:
		switch msg.String() {
		case "esc":
			p.keyInput.Blur()
			p.view = settingsMenu
		case "enter":
			p.commitEdit()
		default:
			var cmd tea.Cmd
			p.keyInput, cmd = p.keyInput.Update(msg)
			return p, settingsNone, cmd
		}

	case settingsEditPrompt:
		switch msg.String() {
		case "esc":
			p.promptInput.Blur()
			p.view = settingsMenu
		case "enter":
			p.commitEdit()
		default:
			var cmd tea.Cmd
			p.promptInput, cmd = p.promptInput.Update(msg)
			return p, settingsNone, cmd
		}

	case settingsSelectModel:
		available := models.AvailableModels()
		switch msg.String() {
		case "esc":
			p.view = settingsMenu
		case "up", "k":
			p.modelCursor = (p.modelCursor - 1 + len(available)) % len(available)
		case "down", "j":
			p.modelCursor = (p.modelCursor + 1) % len(available)
		case "enter", " ":
			p.draft.Model = available[p.modelCursor].ID
			p.view = settingsMenu
		}

	default:
		switch msg.String() {
		case "esc":
			return p, settingsCancel, nil
		case "up", "k":
			p.cursor = (p.cursor - 1 + settingsItemCount) % settingsItemCount
		case "down", "j", "tab":
			p.cursor = (p.cursor + 1) % settingsItemCount
		case "enter", " ":
			return p.selectItem()
		}
	}

	return p, settingsNone, nil
}

func (p settingsPanel) selectItem() (settingsPanel, settingsAction, tea.Cmd) {
	p.err = ""
	switch p.cursor {
	case itemAPIKey:
		p.view = settingsEditKey
		p.keyInput.SetValue(p.draft.APIKey)
		p.keyInput.CursorEnd()
		return p, settingsNone, p.keyInput.Focus()
	case itemModel:
		p.view = settingsSelectModel
	case itemSystemPrompt:
		p.view = settingsEditPrompt
		p.promptInput.SetValue(p.draft.SystemPrompt)
		return p, settingsNone, p.promptInput.Focus()
	case itemSave:
		return p.trySave()
	case itemCancel:
		return p, settingsCancel, nil
	}
	return p, settingsNone, nil
}

// commitEdit copies an open text field into the draft and returns to the menu
func (p *settingsPanel) commitEdit() {
	switch p.view {
	case settingsEditKey:
		p.draft.APIKey = strings.TrimSpace(p.keyInput.Value())
		p.keyInput.Blur()
	case settingsEditPrompt:
		p.draft.SystemPrompt = strings.TrimSpace(p.promptInput.Value())
		p.promptInput.Blur()
	}
	p.view = settingsMenu
}

func (p settingsPanel) trySave() (settingsPanel, settingsAction, tea.Cmd) {
	if !models.IsKnownModel(p.draft.Model) {
		p.err = fmt.Sprintf("Unknown model %q.", p.draft.Model)
		return p, settingsNone, nil
	}
	if strings.TrimSpace(p.draft.SystemPrompt) == "" {
		p.err = "System prompt cannot be empty."
		return p, settingsNone, nil
	}
	p.err = ""
	return p, settingsSave, nil
}

// View renders the panel
func (p settingsPanel) View(width int) string {
	var body string
	switch p.view {
	case settingsEditKey:
		body = lipgloss.JoinVertical(lipgloss.Left,
			settingsTitleStyle.Render("⚙ OpenAI API Key"),
			"",
			settingsInputStyle.Render(p.keyInput.View()),
			"",
			hintStyle.Render("Enter to keep, Esc to go back"),
		)
	case settingsEditPrompt:
		body = lipgloss.JoinVertical(lipgloss.Left,
			settingsTitleStyle.Render("⚙ System Prompt"),
			"",
			p.promptInput.View(),
			"",
			hintStyle.Render("Enter to keep, Alt+Enter for a new line, Esc to go back"),
		)
	case settingsSelectModel:
		body = p.renderModelSelect()
	default:
		body = p.renderMenu(width)
	}

	if p.err != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.UnsetPaddingLeft().Render(p.err))
	}
	return settingsPanelStyle.Width(width).Render(body)
}

func (p settingsPanel) renderMenu(width int) string {
	prompt := strings.Join(strings.Fields(p.draft.SystemPrompt), " ")
	if limit := width - 28; limit > 10 && len([]rune(prompt)) > limit {
		prompt = string([]rune(prompt)[:limit-1]) + "…"
	}

	rows := []struct {
		label string
		value string
	}{
		{"API Key", p.draft.MaskedKey()},
		{"Model", modelLabel(p.draft.Model)},
		{"System Prompt", prompt},
	}

	items := []string{settingsTitleStyle.Render("⚙ Settings"), ""}
	for i, row := range rows {
		items = append(items, p.item(i, fmt.Sprintf("%-15s", row.label))+settingsValueStyle.Render(row.value))
	}
	items = append(items, "", p.item(itemSave, "Save"), p.item(itemCancel, "Cancel"))
	items = append(items, "", hintStyle.Render("↑↓ navigate • Enter select • Ctrl+S save • Esc cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (p settingsPanel) renderModelSelect() string {
	items := []string{settingsTitleStyle.Render("⚙ Select Model"), ""}
	for i, m := range models.AvailableModels() {
		cursor := "  "
		style := settingsItemStyle
		if p.modelCursor == i {
			cursor = settingsCursorStyle.Render("▸ ")
			style = settingsSelectedStyle
		}
		current := ""
		if m.ID == p.draft.Model {
			current = settingsCurrentStyle.Render(" (current)")
		}
		items = append(items, cursor+style.Render(fmt.Sprintf("%s (%s)", m.Label, m.ID))+current)
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (p settingsPanel) item(index int, label string) string {
	if p.cursor == index {
		return settingsCursorStyle.Render("▸ ") + settingsSelectedStyle.Render(label)
	}
	return "  " + settingsItemStyle.Render(label)
}

// modelLabel returns the display name of a model ID
func modelLabel(id string) string {
	for _, m := range models.AvailableModels() {
		if m.ID == id {
			return m.Label
		}
	}
	return id
}
