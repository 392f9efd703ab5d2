package restaurants

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/model"
)

type fakeDirectory struct {
	restaurants []model.Restaurant
	offers      map[string][]model.Offer
	menus       map[string]model.Menu
	listErr     error
	offersErr   error
	offerCalls  []string
}

func (f *fakeDirectory) Restaurants(context.Context, string) ([]model.Restaurant, error) {
	return f.restaurants, f.listErr
}

func (f *fakeDirectory) RestaurantMenu(_ context.Context, id string) (model.Menu, error) {
	m, ok := f.menus[id]
	if !ok {
		return model.Menu{}, &api.APIError{Status: 404, Message: "Not found."}
	}
	return m, nil
}

func (f *fakeDirectory) RestaurantReviews(_ context.Context, id string) (*model.Reviews, error) {
	return &model.Reviews{
		RestaurantID:  id,
		TotalReviews:  1,
		AverageRating: 5,
		Reviews:       []model.Review{{UserName: "Ana", Rating: 5, Title: "Great"}},
	}, nil
}

func (f *fakeDirectory) RestaurantOffers(_ context.Context, id string) ([]model.Offer, error) {
	f.offerCalls = append(f.offerCalls, id)
	return f.offers[id], f.offersErr
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		restaurants: []model.Restaurant{
			{ID: "r1", Name: "Luigi's", Cuisine: "Italian", PriceRange: "$$", AverageRating: 4.5, TotalReviews: 2, ActiveOffersCount: 2},
			{ID: "r2", Name: "El Sol", Cuisine: "Mexican", PriceRange: "$"},
		},
		offers: map[string][]model.Offer{
			"r1": {
				{ID: 1, Title: "Pizza Night", DiscountText: "20% OFF"},
				{ID: 5, Title: "Chef's Table", OfferType: model.OfferTypeSpecial},
			},
		},
		menus: map[string]model.Menu{
			"r1": model.NewMenu("r1", "Luigi's", map[string][]model.MenuItem{
				"Pizza": {{Name: "Margherita", Price: "12.00", IsVegetarian: true}},
			}),
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// result runs the fetch inside a command, skipping the spinner tick.
func result(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "expected a batch")
	require.Len(t, batch, 2)
	return batch[1]()
}

func opened(t *testing.T, dir *fakeDirectory) Model {
	t.Helper()
	m := New(dir, time.Second, 100, 40)
	cmd := m.Open()
	assert.True(t, m.Loading())
	m, _ = m.Update(result(t, cmd))
	require.False(t, m.Loading())
	return m
}

func TestOpen_ListsRestaurants(t *testing.T) {
	m := opened(t, newDirectory())

	require.Len(t, m.Restaurants(), 2)
	view := m.View()
	assert.Contains(t, view, "Luigi's")
	assert.Contains(t, view, "4.5★ (2)")
	assert.Contains(t, view, "2 offers")
	assert.Contains(t, view, "no reviews")
}

func TestListError(t *testing.T) {
	dir := newDirectory()
	dir.listErr = &api.AuthError{}
	m := opened(t, dir)

	assert.Equal(t, "Log in required. Press 's' to update your tokens.", m.Err())
	assert.Contains(t, m.View(), "Log in required")
}

func TestEnterLoadsRestaurantPage(t *testing.T) {
	dir := newDirectory()
	m := opened(t, dir)

	m, cmd := m.Update(key("enter"))
	assert.Equal(t, "detail", m.Page())
	assert.True(t, m.Loading())
	m, _ = m.Update(result(t, cmd))

	assert.Equal(t, []string{"r1"}, dir.offerCalls)
	require.Len(t, m.Offers(), 2)
	view := m.View()
	assert.Contains(t, view, "Pizza Night")
	assert.Contains(t, view, "Margherita")
	assert.Contains(t, view, "veg")
	assert.Contains(t, view, "Great")
}

func TestRestaurantWithoutMenu(t *testing.T) {
	m := opened(t, newDirectory())
	m, _ = m.Update(key("down"))

	m, cmd := m.Update(key("enter"))
	m, _ = m.Update(result(t, cmd))

	assert.Empty(t, m.Err())
	view := m.View()
	assert.Contains(t, view, "No current offers.")
	assert.Contains(t, view, "No menu published.")
}

func TestEnterOnOfferOpensIt(t *testing.T) {
	m := opened(t, newDirectory())
	m, cmd := m.Update(key("enter"))
	m, _ = m.Update(result(t, cmd))

	m, _ = m.Update(key("j"))
	_, cmd = m.Update(key("enter"))
	require.NotNil(t, cmd)
	open, ok := cmd().(OpenOfferMsg)
	require.True(t, ok)
	assert.Equal(t, int64(5), open.Offer.ID)
}

func TestOffersErrorShown(t *testing.T) {
	dir := newDirectory()
	dir.offersErr = errors.New("connection refused")
	m := opened(t, dir)

	m, cmd := m.Update(key("enter"))
	m, _ = m.Update(result(t, cmd))
	assert.Contains(t, m.Err(), "connection refused")

	_, cmd = m.Update(key("enter"))
	assert.Nil(t, cmd, "no offer to open")
}

func TestEscBacksOutAndDropsStaleResults(t *testing.T) {
	m := opened(t, newDirectory())

	m, cmd := m.Update(key("enter"))
	pending := result(t, cmd)

	m, _ = m.Update(key("esc"))
	assert.Equal(t, "list", m.Page())

	m, _ = m.Update(pending)
	assert.Equal(t, "list", m.Page())
	assert.Empty(t, m.Offers())

	_, cmd = m.Update(key("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestResultsOfOtherInstanceIgnored(t *testing.T) {
	dir := newDirectory()
	a := New(dir, time.Second, 100, 40)
	cmd := a.Open()
	msg := result(t, cmd)

	b := New(dir, time.Second, 100, 40)
	b.Open()
	b, _ = b.Update(msg)
	assert.True(t, b.Loading())
	assert.Empty(t, b.Restaurants())
}
