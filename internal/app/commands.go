package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/ui/settings"
)

// commandNames are the commands the palette offers.
var commandNames = []string{"sync", "featured", "activations", "restaurants", "settings", "read", "quit"}

// Credentials stores and reads the bearer tokens. *credential.Store
// implements it.
type Credentials interface {
	settings.TokenWriter
	Tokens() (access string, refresh string, err error)
}

// credentialsCheckedMsg reports whether any token is stored.
type credentialsCheckedMsg struct {
	present bool
}

// offerLoadedMsg carries an offer to open from the activations panel.
type offerLoadedMsg struct {
	offer model.Offer
}

// notificationsReadMsg is sent after every unread notification was marked
// read.
type notificationsReadMsg struct {
	err error
}

// checkCredentials looks for stored tokens. Without any, polling would only
// produce auth errors, so the app opens settings first.
func (m Model) checkCredentials() tea.Cmd {
	creds := m.deps.Credentials
	log := m.log
	return func() tea.Msg {
		access, refresh, err := creds.Tokens()
		if err != nil {
			log.Warn().Err(err).Msg("reading stored tokens")
			return credentialsCheckedMsg{present: false}
		}
		return credentialsCheckedMsg{present: access != "" || refresh != ""}
	}
}

// loadOffer fetches an offer for the activations panel or the restaurant
// directory: from the cache first, then from the backend. An offer neither
// knows is rebuilt from its activation record.
func (m Model) loadOffer(id int64) tea.Cmd {
	s := m.deps.Store
	acts := m.deps.Activations
	client := m.deps.Client
	timeout := m.deps.Config.API.Timeout()
	log := m.log
	return func() tea.Msg {
		o, err := s.GetOfferByID(context.Background(), id)
		if err == nil && o != nil {
			return offerLoadedMsg{offer: *o}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		o, err = client.GetOffer(ctx, id)
		if err == nil {
			return offerLoadedMsg{offer: *o}
		}
		log.Debug().Err(err).Int64("offer_id", id).Msg("offer not available from backend")

		fallback := model.Offer{ID: id, Title: fmt.Sprintf("Offer #%d", id)}
		if rec, ok := acts.Get(id); ok {
			if rec.OfferTitle != "" {
				fallback.Title = rec.OfferTitle
			}
			fallback.RestaurantName = rec.RestaurantName
		}
		return offerLoadedMsg{offer: fallback}
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.deps.Store
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notifications)}
	}
}

// markAllRead marks every unread notification as read.
func (m Model) markAllRead() tea.Cmd {
	s := m.deps.Store
	return func() tea.Msg {
		ctx := context.Background()
		notifications, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			return notificationsReadMsg{err: err}
		}
		for _, n := range notifications {
			if err := s.MarkNotificationRead(ctx, n.ID); err != nil {
				return notificationsReadMsg{err: err}
			}
		}
		return notificationsReadMsg{}
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "sync":
		m.deps.Poller.RefreshAll()
		return m.offerList.LoadOffers()
	case "quit", "q":
		m.shutdown()
		return tea.Quit
	case "settings", "config":
		return m.open(ViewSettings)
	case "activations", "my":
		return m.open(ViewActivations)
	case "restaurants", "dir":
		return m.open(ViewRestaurants)
	case "featured":
		m.closeCard()
		m.currentView = ViewList
		return m.offerList.ToggleFeatured()
	case "read":
		return m.markAllRead()
	default:
		m.notice = fmt.Sprintf("unknown command %q", cmd)
		return nil
	}
}
