package activations

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// Lister reads the running activations. *activation.Store implements it.
type Lister interface {
	Records() []model.ActivationRecord
	RemainingSeconds(offerID int64) int
}

// OpenOfferMsg asks the app to show the card of an activated offer.
type OpenOfferMsg struct {
	OfferID int64
}

// CloseMsg is emitted when the panel is dismissed.
type CloseMsg struct{}

// TickMsg refreshes the countdowns of one panel instance.
type TickMsg struct {
	ID  int
	Gen int
}

var lastID int64

// Model lists every running activation with its countdown.
type Model struct {
	id      int
	gen     int
	lister  Lister
	records []model.ActivationRecord
	cursor  int
	width   int
	height  int
}

// New creates the panel.
func New(l Lister, width, height int) Model {
	return Model{
		id:     int(atomic.AddInt64(&lastID, 1)),
		lister: l,
		width:  width,
		height: height,
	}
}

// Open reloads the records and starts the countdown tick.
func (m *Model) Open() tea.Cmd {
	m.gen++
	m.reload()
	return m.tick()
}

// Close stops the countdown tick. Ticks already in flight are ignored.
func (m *Model) Close() {
	m.gen++
}

func (m *Model) reload() {
	m.records = m.lister.Records()
	if m.cursor >= len(m.records) {
		m.cursor = len(m.records) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) tick() tea.Cmd {
	id, gen := m.id, m.gen
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{ID: id, Gen: gen}
	})
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if msg.ID != m.id || msg.Gen != m.gen {
			return m, nil
		}
		m.reload()
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "m":
			m.Close()
			return m, func() tea.Msg { return CloseMsg{} }
		case "j", "down":
			if len(m.records) > 0 {
				m.cursor = (m.cursor + 1) % len(m.records)
			}
		case "k", "up":
			if len(m.records) > 0 {
				m.cursor--
				if m.cursor < 0 {
					m.cursor = len(m.records) - 1
				}
			}
		case "enter":
			if m.cursor < len(m.records) {
				id := m.records[m.cursor].OfferID
				m.Close()
				return m, func() tea.Msg { return OpenOfferMsg{OfferID: id} }
			}
		}
	}
	return m, nil
}

// Records returns the records as of the last refresh.
func (m Model) Records() []model.ActivationRecord {
	return m.records
}

// Cursor returns the index of the highlighted record.
func (m Model) Cursor() int {
	return m.cursor
}

// View renders the panel.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("My Activations"))
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No running activations."))
	}

	for i, r := range m.records {
		remaining := m.lister.RemainingSeconds(r.OfferID)
		title := r.OfferTitle
		if title == "" {
			title = fmt.Sprintf("Offer #%d", r.OfferID)
		}
		if r.RestaurantName != "" {
			title += " @ " + r.RestaurantName
		}
		label := fmt.Sprintf("%-10s %s  %s", r.Code, title,
			theme.CountdownStyle(remaining).Render(model.FormatCountdown(remaining)))

		if i == m.cursor {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("enter open offer | esc back"))

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
