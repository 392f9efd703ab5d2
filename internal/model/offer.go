package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OfferType identifies the kind of discount an offer grants.
type OfferType string

const (
	OfferTypePercentage OfferType = "percentage"
	OfferTypeFixed      OfferType = "fixed"
	OfferTypeBOGO       OfferType = "bogo"
	OfferTypeCombo      OfferType = "combo"
	OfferTypeSpecial    OfferType = "special"
)

// Feed names the backend listing an offer was fetched from.
type Feed string

const (
	FeedAll      Feed = "all"
	FeedFeatured Feed = "featured"
)

// Offer is a discount or promotion published by a restaurant.
type Offer struct {
	// ID is the backend identifier of the offer.
	ID int64 `json:"id"`

	Title       string    `json:"title"`
	Description string    `json:"description"`
	OfferType   OfferType `json:"offer_type"`

	// DiscountText is the server-rendered headline (e.g. "20% OFF").
	// May be empty; see Headline.
	DiscountText string `json:"discount_text"`
	SavingsText  string `json:"savings_text"`

	// Decimal amounts arrive as strings from the backend.
	DiscountPercentage    string `json:"discount_percentage,omitempty"`
	DiscountAmount        string `json:"discount_amount,omitempty"`
	MaximumDiscountAmount string `json:"maximum_discount_amount,omitempty"`
	MinimumOrderAmount    string `json:"minimum_order_amount,omitempty"`

	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`

	RestaurantName    string `json:"restaurant_name"`
	RestaurantCuisine string `json:"restaurant_cuisine,omitempty"`

	IsActive   bool `json:"is_active"`
	IsFeatured bool `json:"is_featured"`
	IsValid    bool `json:"is_valid"`

	// RemainingUses is how many more times the current user may use the
	// offer; nil when the backend does not report it.
	RemainingUses *int `json:"remaining_uses,omitempty"`

	// UserActivation is a pending activation the backend already holds
	// for the current user, if any.
	UserActivation *ActivationPayload `json:"user_activation,omitempty"`

	// FetchedAt is when this offer was last retrieved from the backend.
	FetchedAt time.Time `json:"fetched_at"`
}

// Headline returns the discount text shown on offer cards, falling back to
// a description derived from the offer type when the backend sent none.
func (o Offer) Headline() string {
	if o.DiscountText != "" {
		return o.DiscountText
	}

	switch o.OfferType {
	case OfferTypePercentage:
		if o.DiscountPercentage != "" {
			return trimDecimal(o.DiscountPercentage) + "% OFF"
		}
		return "DISCOUNT"
	case OfferTypeFixed:
		if o.DiscountAmount != "" {
			return "$" + trimDecimal(o.DiscountAmount) + " OFF"
		}
		return "DISCOUNT"
	case OfferTypeBOGO:
		return "Buy 1 Get 1 FREE"
	case OfferTypeCombo:
		return "Combo Deal"
	case OfferTypeSpecial:
		return "Special Offer"
	default:
		return "OFFER"
	}
}

// ValidityLabel formats the end of the offer's validity window.
func (o Offer) ValidityLabel() string {
	if o.ValidUntil.IsZero() {
		return "No expiry"
	}
	return "Until " + o.ValidUntil.Local().Format("Jan 2, 2006")
}

// Key returns the offer ID in the string form used by persisted maps.
func (o Offer) Key() string {
	return strconv.FormatInt(o.ID, 10)
}

// trimDecimal drops a zero fractional part ("20.00" -> "20").
func trimDecimal(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strings.TrimRight(fmt.Sprintf("%.2f", f), "0")
}
