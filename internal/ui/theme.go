package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	// Butterscotch is the primary accent color.
	Butterscotch = "#FF9966"
	// Blue is the informational blue.
	Blue = "#9999CC"
	// RedAlert is the failure red.
	RedAlert = "#FF3333"
	// YellowCaution is the caution yellow used for unknown status.
	YellowCaution = "#FFCC00"
	// GreenOk is the success green.
	GreenOk = "#33FF33"
	// GalaxyGray is the muted neutral.
	GalaxyGray = "#52526A"
	// MoonlitViolet is the focus color.
	MoonlitViolet = "#9966FF"
)

const (
	IconOK      = "✓"
	IconFailed  = "✗"
	IconUnknown = "⚠"
)

var colorProfileFn = lipgloss.ColorProfile

var (
	ButterscotchColor  = profileColor(Butterscotch, "209", "11")
	BlueColor          = profileColor(Blue, "146", "12")
	RedAlertColor      = profileColor(RedAlert, "203", "9")
	YellowCautionColor = profileColor(YellowCaution, "220", "11")
	GreenOkColor       = profileColor(GreenOk, "46", "10")
	GalaxyGrayColor    = profileColor(GalaxyGray, "60", "8")
	MoonlitVioletColor = profileColor(MoonlitViolet, "99", "5")
)

var (
	// HeaderStyle renders table headers.
	HeaderStyle = lipgloss.NewStyle().Foreground(ButterscotchColor).Bold(true).Padding(0, 1)
	// CellStyle renders table cells.
	CellStyle = lipgloss.NewStyle().Padding(0, 1)
	// KeyStyle renders property names.
	KeyStyle = lipgloss.NewStyle().Foreground(BlueColor).Padding(0, 1)
	// SuccessStyle marks OKAY replies and completed operations.
	SuccessStyle = lipgloss.NewStyle().Foreground(GreenOkColor).Bold(true)
	// ErrorStyle marks FAIL replies and errors.
	ErrorStyle = lipgloss.NewStyle().Foreground(RedAlertColor).Bold(true)
	// WarningStyle marks unknown status tokens.
	WarningStyle = lipgloss.NewStyle().Foreground(YellowCautionColor).Bold(true)
	// MutedStyle renders secondary text.
	MutedStyle = lipgloss.NewStyle().Foreground(GalaxyGrayColor)
	// FocusStyle marks the focused element in the browser.
	FocusStyle = lipgloss.NewStyle().Foreground(MoonlitVioletColor).Bold(true)
	// BorderStyle colors table and panel borders.
	BorderStyle = lipgloss.NewStyle().Foreground(GalaxyGrayColor)
)

func profileColor(hex string, ansi256 string, ansi string) lipgloss.TerminalColor {
	switch colorProfileFn() {
	case termenv.ANSI256, termenv.ANSI:
		complete := lipgloss.CompleteColor{TrueColor: hex, ANSI256: ansi256, ANSI: ansi}
		return lipgloss.CompleteAdaptiveColor{Light: complete, Dark: complete}
	default:
		return lipgloss.AdaptiveColor{Light: hex, Dark: hex}
	}
}

var (
	// PanelBorder is the default panel border style.
	PanelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(GalaxyGrayColor)

	// PanelBorderFocused is the focused panel border.
	PanelBorderFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(MoonlitVioletColor)
)
