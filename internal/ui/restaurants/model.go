// Package restaurants is the read-only restaurant directory: a list of
// restaurants and a detail page with their live offers, menu and reviews.
package restaurants

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// Directory reads restaurants from the backend. *api.Client implements it.
type Directory interface {
	Restaurants(ctx context.Context, cuisine string) ([]model.Restaurant, error)
	RestaurantMenu(ctx context.Context, id string) (model.Menu, error)
	RestaurantReviews(ctx context.Context, id string) (*model.Reviews, error)
	RestaurantOffers(ctx context.Context, id string) ([]model.Offer, error)
}

// OpenOfferMsg asks the app to show the card of an offer picked from a
// restaurant page.
type OpenOfferMsg struct {
	Offer model.Offer
}

// CloseMsg is emitted when the directory is dismissed.
type CloseMsg struct{}

type listLoadedMsg struct {
	id          int
	gen         int
	restaurants []model.Restaurant
	err         error
}

type detailLoadedMsg struct {
	id     int
	gen    int
	detail detail
	err    error
}

// detail is everything the restaurant page shows.
type detail struct {
	restaurant model.Restaurant
	offers     []model.Offer
	menu       model.Menu
	reviews    *model.Reviews
}

type page int

const (
	pageList page = iota
	pageDetail
)

var lastID int64

// Model is the directory view.
type Model struct {
	id      int
	gen     int
	dir     Directory
	timeout time.Duration

	page    page
	loading bool
	err     string

	restaurants []model.Restaurant
	cursor      int

	detail      detail
	offerCursor int
	viewport    viewport.Model
	spinner     spinner.Model

	width  int
	height int
}

// New creates the directory. timeout bounds each backend fetch.
func New(dir Directory, timeout time.Duration, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(width, height)
	vp.KeyMap.Up.SetEnabled(false)
	vp.KeyMap.Down.SetEnabled(false)

	m := Model{
		id:       int(atomic.AddInt64(&lastID, 1)),
		dir:      dir,
		timeout:  timeout,
		spinner:  sp,
		viewport: vp,
	}
	m.SetSize(width, height)
	return m
}

// Open shows the restaurant list and reloads it.
func (m *Model) Open() tea.Cmd {
	m.page = pageList
	return m.fetchList()
}

// Close drops any fetch still in flight.
func (m *Model) Close() {
	m.gen++
	m.loading = false
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) fetchList() tea.Cmd {
	m.gen++
	m.loading = true
	m.err = ""

	dir, timeout, id, gen := m.dir, m.timeout, m.id, m.gen
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rs, err := dir.Restaurants(ctx, "")
		return listLoadedMsg{id: id, gen: gen, restaurants: rs, err: err}
	})
}

func (m *Model) fetchDetail(r model.Restaurant) tea.Cmd {
	m.gen++
	m.loading = true
	m.err = ""
	m.page = pageDetail
	m.detail = detail{restaurant: r}
	m.offerCursor = 0

	dir, timeout, id, gen := m.dir, m.timeout, m.id, m.gen
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		d := detail{restaurant: r}
		var err error
		if d.offers, err = dir.RestaurantOffers(ctx, r.ID); err != nil {
			return detailLoadedMsg{id: id, gen: gen, err: err}
		}
		// A restaurant without a menu or reviews still has a page.
		if d.menu, err = dir.RestaurantMenu(ctx, r.ID); err != nil && !api.IsNotFound(err) {
			return detailLoadedMsg{id: id, gen: gen, err: err}
		}
		if d.reviews, err = dir.RestaurantReviews(ctx, r.ID); err != nil && !api.IsNotFound(err) {
			return detailLoadedMsg{id: id, gen: gen, err: err}
		}
		return detailLoadedMsg{id: id, gen: gen, detail: d}
	})
}

// Update handles messages for the directory.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		if msg.id != m.id || msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, nil
		}
		m.restaurants = msg.restaurants
		if m.cursor >= len(m.restaurants) {
			m.cursor = max(len(m.restaurants)-1, 0)
		}
		return m, nil

	case detailLoadedMsg:
		if msg.id != m.id || msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, nil
		}
		m.detail = msg.detail
		m.refreshDetail()
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.page == pageDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "d":
		m.Close()
		return m, func() tea.Msg { return CloseMsg{} }
	case "r":
		cmd := m.fetchList()
		return m, cmd
	case "j", "down":
		if len(m.restaurants) > 0 {
			m.cursor = (m.cursor + 1) % len(m.restaurants)
		}
	case "k", "up":
		if len(m.restaurants) > 0 {
			m.cursor = (m.cursor - 1 + len(m.restaurants)) % len(m.restaurants)
		}
	case "enter":
		if m.loading || m.cursor >= len(m.restaurants) {
			return m, nil
		}
		cmd := m.fetchDetail(m.restaurants[m.cursor])
		return m, cmd
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.gen++
		m.loading = false
		m.err = ""
		m.page = pageList
		return m, nil
	case "j", "down":
		if n := len(m.detail.offers); n > 0 {
			m.offerCursor = (m.offerCursor + 1) % n
			m.refreshDetail()
		}
		return m, nil
	case "k", "up":
		if n := len(m.detail.offers); n > 0 {
			m.offerCursor = (m.offerCursor - 1 + n) % n
			m.refreshDetail()
		}
		return m, nil
	case "enter":
		if m.loading || m.offerCursor >= len(m.detail.offers) {
			return m, nil
		}
		o := m.detail.offers[m.offerCursor]
		return m, func() tea.Msg { return OpenOfferMsg{Offer: o} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func errorText(err error) string {
	if api.IsAuthError(err) {
		return "Log in required. Press 's' to update your tokens."
	}
	return "Could not reach AirDine: " + err.Error()
}

// Page reports whether the list or a restaurant page is showing.
func (m Model) Page() string {
	if m.page == pageDetail {
		return "detail"
	}
	return "list"
}

// Restaurants returns the listed restaurants.
func (m Model) Restaurants() []model.Restaurant {
	return m.restaurants
}

// Cursor returns the index of the highlighted restaurant.
func (m Model) Cursor() int {
	return m.cursor
}

// Offers returns the offers of the open restaurant page.
func (m Model) Offers() []model.Offer {
	return m.detail.offers
}

// Loading reports whether a fetch is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// Err returns the last fetch error shown to the user.
func (m Model) Err() string {
	return m.err
}

// refreshDetail re-renders the restaurant page into the viewport.
func (m *Model) refreshDetail() {
	m.viewport.SetContent(m.renderDetail())
}

func (m Model) renderDetail() string {
	d := m.detail
	r := d.restaurant
	var b strings.Builder

	meta := []string{r.Cuisine, r.PriceRange}
	if h := r.Hours(); h != "" {
		meta = append(meta, h)
	}
	if r.IsOpen {
		meta = append(meta, "open now")
	} else {
		meta = append(meta, "closed")
	}
	b.WriteString(theme.DimmedStyle.Render(strings.Join(nonEmpty(meta), " · ")))
	b.WriteString("\n")
	if r.Address != "" {
		b.WriteString(r.Address + "\n")
	}
	if r.Description != "" {
		b.WriteString(r.Description + "\n")
	}

	b.WriteString("\n" + section("Offers") + "\n")
	if len(d.offers) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No current offers.") + "\n")
	}
	for i, o := range d.offers {
		label := fmt.Sprintf("%-18s %s", o.Headline(), o.Title)
		if i == m.offerCursor {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + section("Menu") + "\n")
	if d.menu.TotalItems() == 0 {
		b.WriteString(theme.DimmedStyle.Render("No menu published.") + "\n")
	}
	for _, c := range d.menu.Categories {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(c.Name) + "\n")
		for _, it := range c.Items {
			line := fmt.Sprintf("  %-24s $%s", it.Name, it.Price)
			if tags := it.Tags(); tags != "" {
				line += theme.DimmedStyle.Render("  " + tags)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + section("Reviews") + "\n")
	if d.reviews == nil || len(d.reviews.Reviews) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No reviews yet.") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("%.1f★ from %d reviews\n", d.reviews.AverageRating, d.reviews.TotalReviews))
		for _, rv := range d.reviews.Reviews {
			b.WriteString(fmt.Sprintf("%s %s: %s\n", strings.Repeat("★", rv.Rating), rv.UserName, rv.Title))
			if rv.Comment != "" {
				b.WriteString(theme.DimmedStyle.Render("  "+rv.Comment) + "\n")
			}
		}
	}

	return b.String()
}

func section(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorOrange).Render(title)
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// View renders the directory.
func (m Model) View() string {
	var b strings.Builder

	title := "Restaurants"
	if m.page == pageDetail {
		title = m.detail.restaurant.Name
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(title))
	b.WriteString("\n\n")

	switch {
	case m.err != "":
		b.WriteString(theme.ErrorStyle.Render(m.err))
		b.WriteString("\n")
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading...\n")
	case m.page == pageDetail:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	default:
		b.WriteString(m.viewList())
	}

	b.WriteString("\n")
	if m.page == pageDetail {
		b.WriteString(theme.HelpStyle.Render("j/k offer | enter open offer | pgup/pgdn scroll | esc back"))
	} else {
		b.WriteString(theme.HelpStyle.Render("enter open | r reload | esc back"))
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(b.String())
}

func (m Model) viewList() string {
	if len(m.restaurants) == 0 {
		return theme.DimmedStyle.Render("No restaurants found.") + "\n"
	}

	var b strings.Builder
	for i, r := range m.restaurants {
		label := fmt.Sprintf("%-22s %-10s %-4s %s", r.Name, r.Cuisine, r.PriceRange, r.Stars())
		if r.ActiveOffersCount > 0 {
			label += "  " + theme.FeaturedBadgeStyle.Render(fmt.Sprintf("%d offers", r.ActiveOffersCount))
		}
		if i == m.cursor {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-8, 3)
}
