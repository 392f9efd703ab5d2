package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Restaurant is a venue publishing offers. The directory endpoints serve
// it read-only.
type Restaurant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cuisine     string `json:"cuisine"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address"`
	Phone       string `json:"phone,omitempty"`

	// PriceRange is one of "$" through "$$$$".
	PriceRange    string  `json:"price_range"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`

	// Opening hours arrive as "HH:MM:SS".
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`

	IsOpen            bool `json:"is_open"`
	IsFeatured        bool `json:"is_featured"`
	HasOffers         bool `json:"has_offers"`
	ActiveOffersCount int  `json:"active_offers_count"`
}

// Hours renders the opening hours as "11:00-22:00".
func (r Restaurant) Hours() string {
	if r.OpeningTime == "" || r.ClosingTime == "" {
		return ""
	}
	return clock(r.OpeningTime) + "-" + clock(r.ClosingTime)
}

func clock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// Stars renders the rating as "4.5★ (120)".
func (r Restaurant) Stars() string {
	if r.TotalReviews == 0 {
		return "no reviews"
	}
	return fmt.Sprintf("%.1f★ (%d)", r.AverageRating, r.TotalReviews)
}

// MenuItem is one dish on a restaurant's menu.
type MenuItem struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	CategoryName string `json:"category_name"`

	IsVegetarian bool `json:"is_vegetarian"`
	IsVegan      bool `json:"is_vegan"`
	IsGlutenFree bool `json:"is_gluten_free"`
	IsSpicy      bool `json:"is_spicy"`
	IsAvailable  bool `json:"is_available"`
	IsFeatured   bool `json:"is_featured"`
	DisplayOrder int  `json:"display_order"`
}

// Tags returns the short dietary markers of the item, e.g. "veg, spicy".
func (i MenuItem) Tags() string {
	var tags []string
	switch {
	case i.IsVegan:
		tags = append(tags, "vegan")
	case i.IsVegetarian:
		tags = append(tags, "veg")
	}
	if i.IsGlutenFree {
		tags = append(tags, "gf")
	}
	if i.IsSpicy {
		tags = append(tags, "spicy")
	}
	return strings.Join(tags, ", ")
}

// MenuCategory groups the items of one category in display order.
type MenuCategory struct {
	Name  string
	Items []MenuItem
}

// Menu is a restaurant's menu grouped by category.
type Menu struct {
	RestaurantID   string
	RestaurantName string
	Categories     []MenuCategory
}

// NewMenu groups categorized items, ordering categories by name and items
// by display order then name.
func NewMenu(restaurantID, restaurantName string, byCategory map[string][]MenuItem) Menu {
	m := Menu{RestaurantID: restaurantID, RestaurantName: restaurantName}
	for name, items := range byCategory {
		items = append([]MenuItem(nil), items...)
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].DisplayOrder != items[j].DisplayOrder {
				return items[i].DisplayOrder < items[j].DisplayOrder
			}
			return items[i].Name < items[j].Name
		})
		m.Categories = append(m.Categories, MenuCategory{Name: name, Items: items})
	}
	sort.Slice(m.Categories, func(i, j int) bool {
		return m.Categories[i].Name < m.Categories[j].Name
	})
	return m
}

// TotalItems counts the items across categories.
func (m Menu) TotalItems() int {
	n := 0
	for _, c := range m.Categories {
		n += len(c.Items)
	}
	return n
}

// Review is a diner's rating of a restaurant.
type Review struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Reviews is a restaurant's review summary with the most recent reviews.
type Reviews struct {
	RestaurantID   string   `json:"restaurant_id"`
	RestaurantName string   `json:"restaurant_name"`
	TotalReviews   int      `json:"total_reviews"`
	AverageRating  float64  `json:"average_rating"`
	Reviews        []Review `json:"reviews"`
}
