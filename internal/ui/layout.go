package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/theme"
)

// Layout holds the terminal dimensions and the fixed chrome around the
// content area.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with a one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height left between header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// CardWidth returns the width of centered panels such as the offer card,
// clamped to a readable range.
func (l Layout) CardWidth() int {
	return min(max(l.Width-8, 40), 72)
}

// RenderHeader renders the title bar: title and an optional badge on the
// left, status on the right.
func (l Layout) RenderHeader(title, badge, status string) string {
	left := theme.HeaderStyle.Render(title)
	if badge != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left,
			theme.HeaderStyle.Foreground(theme.ColorYellow).Render(badge))
	}
	right := theme.HeaderStyle.Render(status)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, l.fill(theme.HeaderStyle, left, right), right)
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, l.fill(theme.StatusBarStyle, rendered))
}

// fill pads a bar to the full width with the bar's background.
func (l Layout) fill(style lipgloss.Style, parts ...string) string {
	gap := l.Width
	for _, p := range parts {
		gap -= lipgloss.Width(p)
	}
	if gap <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(gap).Background(style.GetBackground()).Render("")
}

// Overlay centers a panel in the content area.
func (l Layout) Overlay(panel string) string {
	return lipgloss.Place(l.Width, l.ContentHeight(), lipgloss.Center, lipgloss.Center, panel)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
