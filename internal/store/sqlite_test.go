package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/store"
	"github.com/kahan44/airdine/tests/testutil"
)

func sampleOffers() []model.Offer {
	until := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	return []model.Offer{
		{ID: 1, Title: "Pizza Night", Description: "Large pies", RestaurantName: "Luigi's", OfferType: model.OfferTypePercentage, DiscountPercentage: "20.00", ValidUntil: until},
		{ID: 2, Title: "Burger Combo", Description: "Fries included", RestaurantName: "Stack House", OfferType: model.OfferTypeCombo, IsFeatured: true},
		{ID: 3, Title: "Taco Tuesday", Description: "Two for one", RestaurantName: "El Sol", OfferType: model.OfferTypeBOGO, IsFeatured: true, ValidUntil: until.AddDate(0, -1, 0)},
	}
}

func TestNewSQLiteStore_AppliesMigrations(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airdine.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.PutSlot(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	data, err := s.GetSlot(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestUpsertOffers_RoundTripsFullOffer(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	uses := 2
	in := sampleOffers()[0]
	in.RemainingUses = &uses
	require.NoError(t, s.UpsertOffers(ctx, []model.Offer{in}))

	got, err := s.GetOfferByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pizza Night", got.Title)
	assert.Equal(t, "20% OFF", got.Headline())
	require.NotNil(t, got.RemainingUses)
	assert.Equal(t, 2, *got.RemainingUses)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestUpsertOffers_ReplacesExisting(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertOffers(ctx, sampleOffers()))

	updated := sampleOffers()[1]
	updated.Title = "Burger Combo XL"
	require.NoError(t, s.UpsertOffers(ctx, []model.Offer{updated}))

	all, err := s.GetOffers(ctx, store.OfferFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.GetOfferByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Burger Combo XL", got.Title)
}

func TestUpsertOffers_EmptyIsNoop(t *testing.T) {
	s := testutil.NewTestStore(t)
	assert.NoError(t, s.UpsertOffers(context.Background(), nil))
}

func TestGetOffers_Filters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertOffers(ctx, sampleOffers()))

	q := "sol"
	tests := []struct {
		name    string
		filter  store.OfferFilter
		wantIDs []int64
	}{
		{"all by title", store.OfferFilter{SortBy: "title"}, []int64{2, 1, 3}},
		{"featured only", store.OfferFilter{FeaturedOnly: true, SortBy: "title"}, []int64{2, 3}},
		{"query matches restaurant", store.OfferFilter{Query: &q}, []int64{3}},
		{"title desc", store.OfferFilter{SortBy: "title", SortDesc: true}, []int64{3, 1, 2}},
		{"limit and offset", store.OfferFilter{SortBy: "title", Limit: 1, Offset: 1}, []int64{1}},
		{"offset without limit", store.OfferFilter{SortBy: "title", Offset: 2}, []int64{3}},
		{"unknown sort falls back", store.OfferFilter{SortBy: "id; DROP TABLE offers"}, []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetOffers(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]int64, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetOfferByID_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetOfferByID(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrOfferNotFound)
}

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateNotification(ctx, model.Notification{OfferID: 2, Message: "older", CreatedAt: base}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{OfferID: 3, Message: "newer", CreatedAt: base.Add(time.Minute)}))

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "newer", unread[0].Message)
	assert.NotEmpty(t, unread[0].ID)

	require.NoError(t, s.MarkNotificationRead(ctx, unread[0].ID))

	unread, err = s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, int64(2), unread[0].OfferID)
}
