// Package tui provides the interactive chat interface for aichat.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/aichat/internal/render"
)

// Color variables (updated from theme)
var (
	colorBorder lipgloss.Color
	colorTitle  lipgloss.Color

	colorUser      lipgloss.Color
	colorAssistant lipgloss.Color
	colorFollowup  lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color

	colorText    lipgloss.Color
	colorTextDim lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style
	modeStyle     lipgloss.Style

	messagesAreaStyle lipgloss.Style

	userLabelStyle       lipgloss.Style
	userBubbleStyle      lipgloss.Style
	assistantLabelStyle  lipgloss.Style
	assistantBubbleStyle lipgloss.Style
	timestampStyle       lipgloss.Style

	followupTitleStyle lipgloss.Style
	followupStyle      lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusLineStyle lipgloss.Style
	warningStyle    lipgloss.Style
	errorStyle      lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	settingsPanelStyle    lipgloss.Style
	settingsTitleStyle    lipgloss.Style
	settingsInputStyle    lipgloss.Style
	settingsItemStyle     lipgloss.Style
	settingsSelectedStyle lipgloss.Style
	settingsCursorStyle   lipgloss.Style
	settingsValueStyle    lipgloss.Style
	settingsCurrentStyle  lipgloss.Style
)

func init() {
	ApplyTheme(render.DefaultTUITheme)
}

// ApplyTheme rebuilds all styles from the named theme. It reports false and
// uses the default theme when the name is unknown.
func ApplyTheme(name string) bool {
	theme, ok := render.TUIThemeByName(name)

	colorBorder = theme.Border
	colorTitle = theme.Title
	colorUser = theme.User
	colorAssistant = theme.Assistant
	colorFollowup = theme.Followup
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim

	rebuildStyles()
	return ok
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	modeStyle = lipgloss.NewStyle().
		Foreground(colorFollowup).
		Bold(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorUser).
		Bold(true).
		MarginLeft(4)

	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorUser).
		Foreground(colorText).
		Padding(0, 1).
		MarginLeft(4)

	assistantLabelStyle = lipgloss.NewStyle().
		Foreground(colorAssistant).
		Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorAssistant).
		Foreground(colorText).
		Padding(0, 1).
		MarginRight(4)

	timestampStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	followupTitleStyle = lipgloss.NewStyle().
		Foreground(colorFollowup).
		Bold(true).
		MarginLeft(2)

	followupStyle = lipgloss.NewStyle().
		Foreground(colorFollowup).
		MarginLeft(4)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorUser).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAssistant).
		Bold(true)

	statusLineStyle = lipgloss.NewStyle().
		Foreground(colorText).
		PaddingLeft(1)

	warningStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true).
		PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		PaddingLeft(1)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	settingsPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorTitle).
		Padding(1, 2)

	settingsTitleStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true)

	settingsInputStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	settingsItemStyle = lipgloss.NewStyle().
		Foreground(colorText)

	settingsSelectedStyle = lipgloss.NewStyle().
		Foreground(colorTitle).
		Bold(true)

	settingsCursorStyle = lipgloss.NewStyle().
		Foreground(colorTitle)

	settingsValueStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	settingsCurrentStyle = lipgloss.NewStyle().
		Foreground(colorAssistant)
}
