package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/activation"
	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/keys"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/store"
	appsync "github.com/kahan44/airdine/internal/sync"
	"github.com/kahan44/airdine/internal/ui"
	"github.com/kahan44/airdine/internal/ui/activations"
	"github.com/kahan44/airdine/internal/ui/command"
	helpview "github.com/kahan44/airdine/internal/ui/help"
	"github.com/kahan44/airdine/internal/ui/offer"
	"github.com/kahan44/airdine/internal/ui/offerlist"
	"github.com/kahan44/airdine/internal/ui/restaurants"
	"github.com/kahan44/airdine/internal/ui/settings"
)

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewOffer
	ViewSettings
	ViewHelp
	ViewCommand
	ViewActivations
	ViewRestaurants
)

// Deps are the long-lived services the UI drives.
type Deps struct {
	Store       store.Store
	Activations *activation.Store
	Client      *api.Client
	Poller      *appsync.Poller
	Credentials Credentials
	Config      *model.AppConfig
	ConfigPath  string
	Logger      zerolog.Logger

	// Clipboard overrides the system clipboard for activation codes.
	Clipboard func(string) error
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the persistence layer.
type Model struct {
	currentView      ViewState
	previousView     ViewState
	layout           ui.Layout
	deps             Deps
	log              zerolog.Logger
	keys             *keys.KeyMap
	offerList        offerlist.Model
	card             offer.Model
	hasCard          bool
	helpView         helpview.Model
	commandView      command.Model
	settingsView     settings.Model
	activationsView  activations.Model
	restaurantsView  restaurants.Model
	cardReturn       ViewState
	ready            bool
	started          bool
	unreadCount      int
	authErrorMessage string
	notice           string
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	log := d.Logger.With().Str("component", "app").Logger()

	return Model{
		currentView:     ViewList,
		layout:          ui.NewLayout(80, 24),
		deps:            d,
		log:             log,
		keys:            k,
		offerList:       offerlist.New(d.Store, d.Activations, k, 80, 22),
		helpView:        helpview.New(k, commandNames, 80, 22),
		commandView:     command.New(commandNames, 80, 22),
		settingsView:    settings.New(d.Config, d.ConfigPath, d.Credentials, d.Client, 80, 22),
		activationsView: activations.New(d.Activations, 80, 22),
		restaurantsView: restaurants.New(d.Client, d.Config.API.Timeout(), 80, 22),
	}
}

// Init loads the cached offers and checks for stored credentials before
// polling starts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.offerList.Init(),
		m.checkCredentials(),
		m.fetchUnreadCount(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.offerList.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		m.activationsView.SetSize(m.layout.CardWidth(), h)
		m.restaurantsView.SetSize(w, h)
		if m.hasCard {
			m.card.SetSize(m.layout.CardWidth(), h)
		}
		// Forward to the active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case credentialsCheckedMsg:
		if !msg.present {
			m.notice = "No tokens stored. Enter them to start syncing."
			cmd := m.open(ViewSettings)
			return m, cmd
		}
		cmd := m.startPolling()
		return m, cmd

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authErrorMessage = ""
		}
		m.offerList.SetStale(msg.Error != nil)

		return m, tea.Batch(
			m.offerList.LoadOffers(),
			m.deps.Poller.WaitForNextResult(),
			m.fetchUnreadCount(),
		)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case notificationsReadMsg:
		m.unreadCount = 0
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("marking notifications read")
		}
		return m, m.fetchUnreadCount()

	case offerlist.SelectedOfferMsg:
		cmd := m.openCard(msg.Offer, ViewList)
		return m, cmd

	case restaurants.OpenOfferMsg:
		cmd := m.openCard(msg.Offer, ViewRestaurants)
		return m, cmd

	case restaurants.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case activations.OpenOfferMsg:
		return m, m.loadOffer(msg.OfferID)

	case offerLoadedMsg:
		cmd := m.openCard(msg.offer, ViewList)
		return m, cmd

	case activations.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case offer.BackMsg:
		m.closeCard()
		m.currentView = m.cardReturn
		return m, m.offerList.LoadOffers()

	case offer.ActivatedMsg:
		m.log.Info().Int64("offer_id", msg.OfferID).Msg("offer activated")
		return m, m.offerList.LoadOffers()

	case offer.ExpiredMsg:
		m.log.Info().Int64("offer_id", msg.OfferID).Msg("activation expired")
		return m, m.offerList.LoadOffers()

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case settings.SettingsSavedMsg:
		m.authErrorMessage = ""
		m.notice = ""
		m.log.Info().Str("base_url", msg.BaseURL).Msg("settings saved")
		if !m.started {
			cmd := m.startPolling()
			return m, cmd
		}
		m.deps.Poller.RefreshAll()
		return m, nil

	case settings.SettingsDoneMsg:
		m.notice = ""
		m.currentView = ViewList
		return m, m.offerList.LoadOffers()

	case tea.KeyMsg:
		if m.currentView != ViewSettings {
			m.notice = ""
		}
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that switch views. The list view only
// owns them while its search input is not focused.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit, true
	}

	switch m.currentView {
	case ViewHelp:
		if msg.String() == "?" || msg.String() == "esc" {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, true
	case ViewList:
		if m.offerList.Searching() {
			return m, nil, false
		}
	case ViewOffer, ViewActivations, ViewRestaurants:
	default:
		return m, nil, false
	}

	switch msg.String() {
	case "?":
		cmd := m.open(ViewHelp)
		return m, cmd, true
	case ":":
		cmd := m.open(ViewCommand)
		return m, cmd, true
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit, true
	case "r":
		m.deps.Poller.RefreshAll()
		return m, m.offerList.LoadOffers(), true
	case "s":
		cmd := m.open(ViewSettings)
		return m, cmd, true
	case "m":
		cmd := m.open(ViewActivations)
		return m, cmd, true
	case "d":
		cmd := m.open(ViewRestaurants)
		return m, cmd, true
	}
	return m, nil, false
}

// open switches to an overlay view, remembering where to return to.
func (m *Model) open(v ViewState) tea.Cmd {
	if m.currentView != ViewHelp && m.currentView != ViewCommand {
		m.previousView = m.currentView
	}
	m.currentView = v

	switch v {
	case ViewSettings:
		m.previousView = ViewList
		return m.settingsView.Init()
	case ViewCommand:
		return m.commandView.Focus()
	case ViewActivations:
		if m.hasCard {
			m.closeCard()
		}
		m.previousView = ViewList
		return m.activationsView.Open()
	case ViewRestaurants:
		if m.hasCard {
			m.closeCard()
		}
		m.previousView = ViewList
		return m.restaurantsView.Open()
	}
	return nil
}

// openCard replaces any open card with a fresh one for o. Leaving the
// card returns to back.
func (m *Model) openCard(o model.Offer, back ViewState) tea.Cmd {
	m.closeCard()
	m.cardReturn = back

	opts := []offer.Option{offer.WithLogger(m.deps.Logger), offer.WithKeys(m.keys)}
	if m.deps.Clipboard != nil {
		opts = append(opts, offer.WithClipboard(m.deps.Clipboard))
	}
	m.card = offer.New(o, m.deps.Activations, m.deps.Client, opts...)
	m.card.SetSize(m.layout.CardWidth(), m.layout.ContentHeight())
	m.hasCard = true
	m.currentView = ViewOffer
	return m.card.Init()
}

// closeCard cancels the open card's request and countdown.
func (m *Model) closeCard() {
	if !m.hasCard {
		return
	}
	m.card.Close()
	m.hasCard = false
}

func (m *Model) forwardToCard(msg tea.Msg) tea.Cmd {
	if !m.hasCard {
		return nil
	}
	var cmd tea.Cmd
	m.card, cmd = m.card.Update(msg)
	return cmd
}

func (m *Model) startPolling() tea.Cmd {
	m.started = true
	return m.deps.Poller.Start()
}

func (m *Model) shutdown() {
	m.closeCard()
	m.activationsView.Close()
	m.restaurantsView.Close()
	m.deps.Poller.Stop()
}

// updateActiveView dispatches keys to the active view. Other messages are
// timers and async results, so the components that own them always see
// them regardless of which view is on screen.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if _, isKey := msg.(tea.KeyMsg); isKey {
		switch m.currentView {
		case ViewList:
			m.offerList, cmd = m.offerList.Update(msg)
		case ViewOffer:
			if m.hasCard {
				m.card, cmd = m.card.Update(msg)
			}
		case ViewSettings:
			m.settingsView, cmd = m.settingsView.Update(msg)
		case ViewHelp:
			m.helpView, cmd = m.helpView.Update(msg)
		case ViewCommand:
			m.commandView, cmd = m.commandView.Update(msg)
		case ViewActivations:
			m.activationsView, cmd = m.activationsView.Update(msg)
		case ViewRestaurants:
			m.restaurantsView, cmd = m.restaurantsView.Update(msg)
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	m.offerList, cmd = m.offerList.Update(msg)
	cmds = append(cmds, cmd)
	cmds = append(cmds, m.forwardToCard(msg))
	m.activationsView, cmd = m.activationsView.Update(msg)
	cmds = append(cmds, cmd)
	m.restaurantsView, cmd = m.restaurantsView.Update(msg)
	cmds = append(cmds, cmd)

	switch m.currentView {
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
		cmds = append(cmds, cmd)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	badge := ""
	if m.unreadCount > 0 {
		badge = fmt.Sprintf("[%d new]", m.unreadCount)
	}
	header := m.layout.RenderHeader("AirDine", badge, m.syncStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.offerList.View()
	case ViewOffer:
		if m.hasCard {
			return m.layout.Overlay(m.card.View())
		}
		return ""
	case ViewSettings:
		return m.settingsView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewActivations:
		return m.layout.Overlay(m.activationsView.View())
	case ViewRestaurants:
		return m.restaurantsView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the combined feed state.
func (m Model) syncStatus() string {
	if !m.started {
		return "not syncing"
	}

	running := 0
	var failed []string
	for _, s := range m.deps.Poller.GetStatuses() {
		switch s.State {
		case appsync.SyncRunning:
			running++
		case appsync.SyncError:
			failed = append(failed, string(s.Feed))
		}
	}

	if running > 0 {
		return fmt.Sprintf("syncing (%d)", running)
	}
	if len(failed) > 0 {
		return "⚠ unreachable: " + strings.Join(failed, ", ")
	}
	return "idle"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.authErrorMessage != "" && m.currentView == ViewList {
		return m.authErrorMessage
	}
	if m.notice != "" {
		return m.notice
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewOffer:
		if m.hasCard && m.card.State() == offer.StateActivated {
			return "c copy code | esc back"
		}
		return "a activate | esc back"
	case ViewSettings:
		return "enter next | esc back"
	case ViewActivations:
		return "j/k move | enter open | esc back"
	case ViewRestaurants:
		return "j/k move | enter open | esc back"
	default:
		if s := m.offerList.FilterSummary(); s != "" {
			return s + " | sort: " + m.offerList.SortLabel()
		}
		return "q quit | ? help | / search | f featured | tab sort | m activations | d restaurants | s settings"
	}
}
