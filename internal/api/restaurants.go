package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kahan44/airdine/internal/model"
)

// menuResponse is the categorized menu the backend returns.
type menuResponse struct {
	RestaurantID   string                      `json:"restaurant_id"`
	RestaurantName string                      `json:"restaurant_name"`
	TotalItems     int                         `json:"total_items"`
	Categories     map[string][]model.MenuItem `json:"categories"`
}

// Restaurants returns the restaurant directory. A non-empty cuisine narrows
// it to that cuisine.
func (c *Client) Restaurants(ctx context.Context, cuisine string) ([]model.Restaurant, error) {
	path := "/restaurants/"
	if cuisine != "" {
		path += "?" + url.Values{"cuisine": {cuisine}}.Encode()
	}

	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching restaurants: %w", err)
	}

	out := []model.Restaurant{}
	if err := decodeList(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding restaurants: %w", err)
	}
	return out, nil
}

// GetRestaurant returns one restaurant's details.
func (c *Client) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	var r model.Restaurant
	if err := c.Get(ctx, "/restaurants/"+url.PathEscape(id)+"/", &r); err != nil {
		return nil, fmt.Errorf("fetching restaurant %s: %w", id, err)
	}
	return &r, nil
}

// RestaurantMenu returns the available menu of a restaurant.
func (c *Client) RestaurantMenu(ctx context.Context, id string) (model.Menu, error) {
	var resp menuResponse
	if err := c.Get(ctx, "/menu/restaurant/"+url.PathEscape(id)+"/", &resp); err != nil {
		return model.Menu{}, fmt.Errorf("fetching menu of %s: %w", id, err)
	}
	return model.NewMenu(resp.RestaurantID, resp.RestaurantName, resp.Categories), nil
}

// RestaurantReviews returns the review summary of a restaurant.
func (c *Client) RestaurantReviews(ctx context.Context, id string) (*model.Reviews, error) {
	var r model.Reviews
	if err := c.Get(ctx, "/reviews/restaurant/"+url.PathEscape(id)+"/", &r); err != nil {
		return nil, fmt.Errorf("fetching reviews of %s: %w", id, err)
	}
	return &r, nil
}
