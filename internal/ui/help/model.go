package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/keys"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// legend explains the offer list markers.
var legend = []struct{ mark, text string }{
	{"★", "featured offer"},
	{"ACTIVE mm:ss", "activation code running, time left"},
	{"⚠", "offers not synced for a while"},
}

// Model is the help overlay view.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	commands []string
	width    int
	height   int
}

// New creates a new help view model. commands lists the palette commands.
func New(keys *keys.KeyMap, commands []string, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:     keys,
		help:     h,
		commands: commands,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	var lb strings.Builder
	for _, l := range legend {
		lb.WriteString(theme.FeaturedBadgeStyle.Render(l.mark))
		lb.WriteString("  ")
		lb.WriteString(theme.DimmedStyle.Render(l.text))
		lb.WriteString("\n")
	}
	for _, t := range []model.OfferType{
		model.OfferTypePercentage, model.OfferTypeFixed, model.OfferTypeBOGO,
		model.OfferTypeCombo, model.OfferTypeSpecial,
	} {
		lb.WriteString(theme.OfferTypeStyle(t).Render(string(t)))
		lb.WriteString(" ")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Legend"),
		lb.String(),
		"",
		titleStyle.Render("Commands"),
		theme.DimmedStyle.Render(":"+strings.Join(m.commands, "  :")),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
