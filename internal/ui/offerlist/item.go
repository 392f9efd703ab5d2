package offerlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/theme"
)

// StalenessThreshold defines how old FetchedAt can be before
// an offer is marked stale.
var StalenessThreshold = 10 * time.Minute

// Countdown reports the seconds left on an offer's activation; zero means
// the offer is not active. *activation.Store implements it.
type Countdown interface {
	RemainingSeconds(offerID int64) int
}

// OfferItem wraps a model.Offer so it can be used in a bubbles/list.
type OfferItem struct {
	Offer model.Offer
}

// FilterValue returns the string used for fuzzy filtering.
func (i OfferItem) FilterValue() string { return i.Offer.Title }

// Title returns the offer title for the list.
func (i OfferItem) Title() string { return i.Offer.Title }

// Description returns a short summary line for the list.
func (i OfferItem) Description() string {
	parts := []string{
		i.Offer.Headline(),
		i.Offer.RestaurantName,
		i.Offer.ValidityLabel(),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering offers.
type ItemDelegate struct {
	countdown Countdown
	// stale is shared by reference with the list Model so a failed sync
	// marks every row.
	stale *bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws one offer: headline, title and badges on the first line,
// restaurant and validity on the second.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	oi, ok := item.(OfferItem)
	if !ok {
		return
	}
	o := oi.Offer
	isSelected := index == m.Index()

	star := "  "
	if o.IsFeatured {
		star = theme.FeaturedBadgeStyle.Render("★ ")
	}

	headline := theme.OfferTypeStyle(o.OfferType).Render(o.Headline())

	badge := ""
	if d.countdown != nil {
		if remaining := d.countdown.RemainingSeconds(o.ID); remaining > 0 {
			badge = " " + theme.ActiveBadgeStyle.Render("ACTIVE "+model.FormatCountdown(remaining))
		}
	}

	staleIndicator := ""
	if d.stale != nil && *d.stale {
		staleIndicator = lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(" ⚠")
	} else if !o.FetchedAt.IsZero() && time.Since(o.FetchedAt) > StalenessThreshold {
		staleIndicator = theme.DimmedStyle.Render(" ●")
	}

	first := fmt.Sprintf("%s%s  %s%s%s", star, headline, o.Title, badge, staleIndicator)

	meta := []string{o.RestaurantName}
	if o.RestaurantCuisine != "" {
		meta = append(meta, o.RestaurantCuisine)
	}
	meta = append(meta, o.ValidityLabel())
	second := "  " + theme.DimmedStyle.Render(strings.Join(meta, " · "))

	line := first + "\n" + second
	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
