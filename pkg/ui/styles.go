package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

var (
	// Terminal palette indexes so user themes apply
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"}
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "4", Dark: "4"}
	ColorDefault = lipgloss.AdaptiveColor{Light: "0", Dark: "7"}

	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StylePrimary lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleAccent  lipgloss.Style

	StyleTitle       lipgloss.Style
	StyleBold        lipgloss.Style
	StyleTableHeader lipgloss.Style
	StyleTableRow    lipgloss.Style
	StyleTableRowAlt lipgloss.Style
	StyleTableBorder lipgloss.Style

	IconSuccess   = "✔"
	IconError     = "✘"
	IconInfo      = "ℹ"
	IconWarning   = "⚠"
	IconRocket    = "🚀"
	IconFolder    = "📁"
	IconDuplicate = "≡"
	IconSkip      = "·"
	IconPlanned   = "→"
	IconBuild     = "🔨"
)

func init() {
	SetTheme("auto")
}

// SetTheme applies "auto", "dark" or "light"
func SetTheme(theme string) {
	switch theme {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent)

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	StyleBold = lipgloss.NewStyle().Bold(true)

	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleTableRow = lipgloss.NewStyle().Foreground(ColorDefault)
	StyleTableRowAlt = lipgloss.NewStyle().Foreground(ColorDefault).Faint(true)
	StyleTableBorder = lipgloss.NewStyle().Foreground(ColorMuted)
}

func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

// FormatRocket is used for long running starts (watch, compile)
func FormatRocket(msg string) string {
	return StylePrimary.Render(IconRocket + " " + msg)
}

func FormatTitle(title string) string {
	return StyleTitle.Render(title)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

func FormatBold(text string) string {
	return StyleBold.Render(text)
}

// FormatStatus renders an organizer status with its icon and colour
func FormatStatus(s domain.Status) string {
	switch s {
	case domain.StatusOrganized:
		return StyleSuccess.Render(IconSuccess + " " + string(s))
	case domain.StatusFailed:
		return StyleError.Render(IconError + " " + string(s))
	case domain.StatusDuplicate:
		return StyleWarning.Render(IconDuplicate + " " + string(s))
	case domain.StatusPlanned:
		return StyleInfo.Render(IconPlanned + " " + string(s))
	default:
		return StyleMuted.Render(IconSkip + " " + string(s))
	}
}

// FormatConfidence colours a confidence tier
func FormatConfidence(c domain.Confidence) string {
	switch c {
	case domain.ConfidenceVeryHigh, domain.ConfidenceHigh:
		return StyleSuccess.Render(string(c))
	case domain.ConfidenceMedium:
		return StyleWarning.Render(string(c))
	case "":
		return StyleMuted.Render("-")
	default:
		return StyleMuted.Render(string(c))
	}
}
