package twin

import (
	"time"

	"github.com/google/uuid"

	"github.com/kahan44/airdine/internal/model"
)

// seed returns the fixture restaurants and offers, with validity windows
// and review dates relative to now.
func seed(now time.Time) (map[uuid.UUID]*restaurantState, map[int64]*offerState) {
	luigi := uuid.MustParse("6f1c2a4e-8d0b-4c51-9a37-2b8e5d9f0c11")
	stack := uuid.MustParse("a3d5e7f9-1b2c-4d6e-8f0a-3c5e7a9b1d22")
	elsol := uuid.MustParse("c9e1f3a5-7b9d-4f1a-8c3e-5a7c9e1b3f33")

	ago := func(d time.Duration) time.Time { return now.Add(-d).UTC().Truncate(time.Second) }
	day := 24 * time.Hour

	restaurants := map[uuid.UUID]*restaurantState{
		luigi: {
			info: model.Restaurant{
				Name: "Luigi's Trattoria", Cuisine: "Italian",
				Description: "Wood-fired pizza and fresh pasta",
				Address:     "12 Via Roma", Phone: "+1 555 0101",
				PriceRange: "$$", OpeningTime: "11:00:00", ClosingTime: "23:00:00",
				IsFeatured: true,
			},
			menu: map[string][]model.MenuItem{
				"Pizza": {
					{ID: 1, Name: "Margherita", Description: "Tomato, mozzarella, basil", Price: "12.00", IsVegetarian: true, DisplayOrder: 1},
					{ID: 2, Name: "Diavola", Description: "Spicy salami, chili oil", Price: "15.00", IsSpicy: true, DisplayOrder: 2},
				},
				"Pasta": {
					{ID: 3, Name: "Cacio e Pepe", Price: "14.00", IsVegetarian: true, IsFeatured: true},
				},
			},
			reviews: []model.Review{
				{ID: 1, UserName: "Ana", Rating: 5, Title: "Best crust in town", Comment: "Came back twice in one week.", CreatedAt: ago(2 * day)},
				{ID: 2, UserName: "Ben", Rating: 4, Title: "Solid", Comment: "Pasta was great, service a bit slow.", CreatedAt: ago(9 * day)},
			},
		},
		stack: {
			info: model.Restaurant{
				Name: "Stack House", Cuisine: "American",
				Description: "Smash burgers and shakes",
				Address:     "400 Market St", Phone: "+1 555 0102",
				PriceRange: "$", OpeningTime: "10:00:00", ClosingTime: "22:00:00",
			},
			menu: map[string][]model.MenuItem{
				"Burgers": {
					{ID: 4, Name: "Double Stack", Price: "11.50", DisplayOrder: 1},
					{ID: 5, Name: "Garden Stack", Price: "10.50", IsVegan: true, IsVegetarian: true, DisplayOrder: 2},
				},
				"Sides": {
					{ID: 6, Name: "Fries", Price: "4.00", IsVegan: true, IsVegetarian: true, IsGlutenFree: true},
				},
			},
			reviews: []model.Review{
				{ID: 3, UserName: "Cleo", Rating: 3, Title: "Fine", Comment: "Good fries.", CreatedAt: ago(day)},
			},
		},
		elsol: {
			info: model.Restaurant{
				Name: "El Sol Taqueria", Cuisine: "Mexican",
				Description: "Street tacos and aguas frescas",
				Address:     "88 Mission Ave", Phone: "+1 555 0103",
				PriceRange: "$", OpeningTime: "09:00:00", ClosingTime: "21:00:00",
			},
			menu: map[string][]model.MenuItem{
				"Tacos": {
					{ID: 7, Name: "Al Pastor", Price: "3.50", IsGlutenFree: true, IsSpicy: true},
					{ID: 8, Name: "Nopales", Price: "3.00", IsVegan: true, IsVegetarian: true, IsGlutenFree: true},
				},
			},
		},
	}
	for id, r := range restaurants {
		r.info.ID = id.String()
	}

	from := now.Add(-day).UTC().Truncate(time.Second)
	until := now.Add(30 * day).UTC().Truncate(time.Second)

	mk := func(id int64, rid uuid.UUID, o model.Offer) *offerState {
		o.ID = id
		o.RestaurantName = restaurants[rid].info.Name
		o.RestaurantCuisine = restaurants[rid].info.Cuisine
		o.IsActive = true
		if o.ValidFrom.IsZero() {
			o.ValidFrom = from
		}
		if o.ValidUntil.IsZero() {
			o.ValidUntil = until
		}
		return &offerState{offer: o, restaurantID: rid, maxUsesPerUser: 3}
	}

	offers := map[int64]*offerState{
		1: mk(1, luigi, model.Offer{
			Title: "Pizza Night", Description: "20% off any large pizza",
			OfferType: model.OfferTypePercentage, DiscountPercentage: "20.00",
			MaximumDiscountAmount: "15.00", MinimumOrderAmount: "25.00",
			DiscountText: "20% OFF", SavingsText: "Save up to $15.00", IsFeatured: true,
		}),
		2: mk(2, stack, model.Offer{
			Title: "Burger Bucks", Description: "$5 off orders over $30",
			OfferType: model.OfferTypeFixed, DiscountAmount: "5.00",
			MinimumOrderAmount: "30.00", DiscountText: "$5 OFF",
		}),
		3: mk(3, elsol, model.Offer{
			Title: "Taco Tuesday", Description: "Buy one taco plate, get one free",
			OfferType: model.OfferTypeBOGO, IsFeatured: true,
		}),
		4: mk(4, stack, model.Offer{
			Title: "Combo Deal", Description: "Burger, fries and a shake",
			OfferType: model.OfferTypeCombo,
		}),
		5: mk(5, luigi, model.Offer{
			Title: "Chef's Table", Description: "Seasonal tasting menu",
			OfferType: model.OfferTypeSpecial, IsFeatured: true,
		}),
		6: mk(6, elsol, model.Offer{
			Title: "Summer Fiesta", Description: "Last season's promotion",
			OfferType: model.OfferTypePercentage, DiscountPercentage: "10.00",
			ValidFrom:  from.Add(-90 * day),
			ValidUntil: from.Add(-day),
		}),
	}

	return restaurants, offers
}
