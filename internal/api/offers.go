package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kahan44/airdine/internal/model"
)

// page is the paginated list envelope some endpoints return.
type page struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results json.RawMessage `json:"results"`
}

// decodeList accepts either a bare JSON array or a {"results": [...]} page.
func decodeList(raw json.RawMessage, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var p page
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decoding page: %w", err)
		}
		raw = p.Results
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// getOffers fetches a list endpoint and stamps FetchedAt.
func (c *Client) getOffers(ctx context.Context, path string) ([]model.Offer, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching offers %s: %w", path, err)
	}

	var offers []model.Offer
	if err := decodeList(raw, &offers); err != nil {
		return nil, fmt.Errorf("decoding offers %s: %w", path, err)
	}

	now := time.Now().UTC()
	for i := range offers {
		offers[i].FetchedAt = now
	}
	return offers, nil
}

// ListOffers returns every currently valid offer.
func (c *Client) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return c.getOffers(ctx, "/offers/")
}

// FeaturedOffers returns the featured subset of offers.
func (c *Client) FeaturedOffers(ctx context.Context) ([]model.Offer, error) {
	return c.getOffers(ctx, "/offers/featured/")
}

// Feed returns the offers of the given feed.
func (c *Client) Feed(ctx context.Context, feed model.Feed) ([]model.Offer, error) {
	if feed == model.FeedFeatured {
		return c.FeaturedOffers(ctx)
	}
	return c.ListOffers(ctx)
}

// RestaurantOffers returns the offers of one restaurant. A restaurant the
// backend does not know yields an empty list.
func (c *Client) RestaurantOffers(ctx context.Context, restaurantID string) ([]model.Offer, error) {
	offers, err := c.getOffers(ctx, "/offers/restaurant/"+url.PathEscape(restaurantID)+"/")
	if IsNotFound(err) {
		return []model.Offer{}, nil
	}
	return offers, err
}

// GetOffer returns a single offer.
func (c *Client) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	var o model.Offer
	if err := c.Get(ctx, fmt.Sprintf("/offers/%d/", id), &o); err != nil {
		return nil, fmt.Errorf("fetching offer %d: %w", id, err)
	}
	o.FetchedAt = time.Now().UTC()
	return &o, nil
}

// ActivateOffer requests an activation code for offerID. The bool result
// is true when the backend created a new activation (201) and false when
// it returned the user's existing pending one (200).
func (c *Client) ActivateOffer(ctx context.Context, offerID int64) (*model.ActivationResponse, bool, error) {
	var resp model.ActivationResponse
	status, err := c.Post(ctx, fmt.Sprintf("/offers/%d/activate/", offerID), struct{}{}, &resp)
	if err != nil {
		return nil, false, fmt.Errorf("activating offer %d: %w", offerID, err)
	}
	if resp.Activation == nil {
		return nil, false, fmt.Errorf("activating offer %d: response has no activation", offerID)
	}
	return &resp, status == http.StatusCreated, nil
}

// Activations returns the current user's recent activations.
func (c *Client) Activations(ctx context.Context) ([]model.ActivationPayload, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/offers/activations/", &raw); err != nil {
		return nil, fmt.Errorf("fetching activations: %w", err)
	}

	var out []model.ActivationPayload
	if err := decodeList(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding activations: %w", err)
	}
	return out, nil
}
