package render

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color scheme of the chat interface
type TUITheme struct {
	Name        string
	Description string

	Border lipgloss.Color
	Title  lipgloss.Color

	// Message role labels
	User      lipgloss.Color
	Assistant lipgloss.Color
	Followup  lipgloss.Color

	Warning lipgloss.Color
	Error   lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// DefaultTUITheme is used when the configured theme is unknown
const DefaultTUITheme = "tokyonight"

var tuiThemes = map[string]TUITheme{
	"tokyonight": {
		Name:        "tokyonight",
		Description: "Tokyo Night, dark with blue accents",
		Border:      "#414868",
		Title:       "#7aa2f7",
		User:        "#9ece6a",
		Assistant:   "#7aa2f7",
		Followup:    "#bb9af7",
		Warning:     "#e0af68",
		Error:       "#f7768e",
		Text:        "#c0caf5",
		TextDim:     "#565f89",
	},
	"catppuccin": {
		Name:        "catppuccin",
		Description: "Catppuccin Mocha, warm pastels",
		Border:      "#45475a",
		Title:       "#89b4fa",
		User:        "#a6e3a1",
		Assistant:   "#89b4fa",
		Followup:    "#cba6f7",
		Warning:     "#f9e2af",
		Error:       "#f38ba8",
		Text:        "#cdd6f4",
		TextDim:     "#6c7086",
	},
	"nord": {
		Name:        "nord",
		Description: "Nord, cool arctic tones",
		Border:      "#4c566a",
		Title:       "#88c0d0",
		User:        "#a3be8c",
		Assistant:   "#88c0d0",
		Followup:    "#b48ead",
		Warning:     "#ebcb8b",
		Error:       "#bf616a",
		Text:        "#eceff4",
		TextDim:     "#7b88a1",
	},
	"mono": {
		Name:        "mono",
		Description: "Grayscale, for limited terminals",
		Border:      "240",
		Title:       "255",
		User:        "252",
		Assistant:   "255",
		Followup:    "248",
		Warning:     "250",
		Error:       "255",
		Text:        "252",
		TextDim:     "244",
	},
}

// TUIThemeByName returns the named theme, or the default theme and false
func TUIThemeByName(name string) (TUITheme, bool) {
	if theme, ok := tuiThemes[name]; ok {
		return theme, true
	}
	return tuiThemes[DefaultTUITheme], false
}

// TUIThemeNames returns the theme names in sorted order
func TUIThemeNames() []string {
	names := make([]string, 0, len(tuiThemes))
	for name := range tuiThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
