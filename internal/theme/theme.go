package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorOrange).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the offer card and overlay panels.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorOrange).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorOrange)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary text such as restaurant and validity.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle renders error messages.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// NoticeStyle renders short-lived confirmations like "Copied".
var NoticeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// FeaturedBadgeStyle marks featured offers.
var FeaturedBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)

// ActiveBadgeStyle marks offers with a running activation.
var ActiveBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorGreen).
	Padding(0, 1)

// CodeStyle renders an activation code.
var CodeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 2).
	MarginTop(1).
	MarginBottom(1)

// CountdownStyle returns the style for a countdown with the given seconds
// left; the last half minute is shown in red.
func CountdownStyle(remaining int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if remaining <= 30 {
		return base.Foreground(ColorRed)
	}
	return base.Foreground(ColorGreen)
}

// OfferTypeStyle returns a color-coded style for the discount headline of
// the given offer type.
func OfferTypeStyle(t model.OfferType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch t {
	case model.OfferTypePercentage:
		return base.Foreground(ColorOrange)
	case model.OfferTypeFixed:
		return base.Foreground(ColorGreen)
	case model.OfferTypeBOGO:
		return base.Foreground(ColorMagenta)
	case model.OfferTypeCombo:
		return base.Foreground(ColorBlue)
	case model.OfferTypeSpecial:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}
