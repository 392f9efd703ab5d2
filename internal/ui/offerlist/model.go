// Package offerlist is the main view: the cached offers with their
// activation badges.
package offerlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/keys"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/store"
	"github.com/kahan44/airdine/internal/theme"
)

// OffersLoadedMsg is sent when offers have been loaded from the store.
type OffersLoadedMsg struct {
	Offers []model.Offer
	Err    error
}

// SelectedOfferMsg is sent when the user opens an offer card.
type SelectedOfferMsg struct {
	Offer model.Offer
}

// tickMsg redraws the ACTIVE countdown badges.
type tickMsg struct{}

// sortModes defines the available sort modes cycled by Tab.
var sortModes = []string{
	"valid_until",
	"title",
	"restaurant_name",
}

var sortLabels = map[string]string{
	"valid_until":     "ending soon",
	"title":           "title",
	"restaurant_name": "restaurant",
}

// Model is the offer list view component.
type Model struct {
	list        list.Model
	store       store.Store
	countdown   Countdown
	keys        *keys.KeyMap
	filter      store.OfferFilter
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	stale       *bool
	ticking     bool
	loadErr     error
	width       int
	height      int
}

// New creates a new offer list model.
func New(s store.Store, c Countdown, k *keys.KeyMap, width, height int) Model {
	stale := new(bool)
	delegate := ItemDelegate{countdown: c, stale: stale}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Offers"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("offer", "offers")
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search offers, restaurants..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:      l,
		store:     s,
		countdown: c,
		keys:      k,
		filter: store.OfferFilter{
			SortBy: sortModes[0],
		},
		searchInput: si,
		stale:       stale,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the initial set of offers.
func (m Model) Init() tea.Cmd {
	return m.LoadOffers()
}

// Update handles messages for the offer list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case OffersLoadedMsg:
		m.loadErr = msg.Err
		items := make([]list.Item, len(msg.Offers))
		for i, o := range msg.Offers {
			items[i] = OfferItem{Offer: o}
		}
		cmd := m.list.SetItems(items)
		tick := m.StartCountdown()
		return m, tea.Batch(cmd, tick)

	case tickMsg:
		m.ticking = false
		cmd := m.StartCountdown()
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	// Delegate to list model for other messages
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := strings.TrimSpace(m.searchInput.Value())
		if query != "" {
			m.filter.Query = &query
		} else {
			m.filter.Query = nil
		}
		return m, m.LoadOffers()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = nil
		return m, m.LoadOffers()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(OfferItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedOfferMsg{Offer: item.Offer}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Featured):
		cmd := m.ToggleFeatured()
		return m, cmd

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		m.filter.SortBy = sortModes[m.sortIndex]
		return m, m.LoadOffers()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// StartCountdown schedules a redraw in one second while any listed offer
// has an active activation. At most one redraw is pending at a time.
func (m *Model) StartCountdown() tea.Cmd {
	if m.ticking || !m.anyActive() {
		return nil
	}
	m.ticking = true
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) anyActive() bool {
	if m.countdown == nil {
		return false
	}
	for _, it := range m.list.Items() {
		if oi, ok := it.(OfferItem); ok && m.countdown.RemainingSeconds(oi.Offer.ID) > 0 {
			return true
		}
	}
	return false
}

// View renders the offer list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no offers are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loadErr != nil {
		return style.Render("Could not read cached offers.\n\n" + m.loadErr.Error())
	}
	if m.filter.FeaturedOnly || m.filter.Query != nil {
		return style.Render("No matching offers.\nTry adjusting your filters.")
	}

	return style.Render(
		"No offers yet.\n\n" +
			"Press r to sync, or s to point the client at your backend.",
	)
}

// FilterSummary describes the active filters for the status bar, or ""
// when none are set.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.FeaturedOnly {
		parts = append(parts, "featured")
	}
	if m.filter.Query != nil {
		parts = append(parts, fmt.Sprintf("search %q", *m.filter.Query))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ") + " | sort: " + sortLabels[m.filter.SortBy]
}

// SortLabel returns the name of the current sort mode.
func (m Model) SortLabel() string {
	return sortLabels[m.filter.SortBy]
}

// Filter returns the current store filter.
func (m Model) Filter() store.OfferFilter {
	return m.filter
}

// Offers returns the offers currently listed.
func (m Model) Offers() []model.Offer {
	items := m.list.Items()
	offers := make([]model.Offer, 0, len(items))
	for _, it := range items {
		if oi, ok := it.(OfferItem); ok {
			offers = append(offers, oi.Offer)
		}
	}
	return offers
}

// ToggleFeatured switches between all offers and featured offers only.
func (m *Model) ToggleFeatured() tea.Cmd {
	m.filter.FeaturedOnly = !m.filter.FeaturedOnly
	return m.LoadOffers()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SetStale marks every row as possibly outdated after a failed sync.
func (m *Model) SetStale(stale bool) {
	*m.stale = stale
}

// LoadOffers returns a tea.Cmd that queries the store with the current filter.
func (m Model) LoadOffers() tea.Cmd {
	filter := m.filter
	s := m.store
	return func() tea.Msg {
		offers, err := s.GetOffers(context.Background(), filter)
		return OffersLoadedMsg{Offers: offers, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
