package model

import (
	"fmt"
	"time"
)

// Activation statuses reported by the backend.
const (
	ActivationPending  = "pending"
	ActivationRedeemed = "redeemed"
	ActivationExpired  = "expired"
)

// ActivationPayload is the activation object returned by the backend when
// an offer is activated, and embedded in offers as user_activation.
type ActivationPayload struct {
	ID             int64     `json:"id,omitempty"`
	OfferID        int64     `json:"offer,omitempty"`
	Code           string    `json:"activation_code" validate:"required,alphanum,max=32"`
	Status         string    `json:"status,omitempty"`
	ExpiresAt      time.Time `json:"expires_at" validate:"required"`
	CreatedAt      time.Time `json:"created_at"`
	OfferTitle     string    `json:"offer_title"`
	RestaurantName string    `json:"restaurant_name"`
}

// ActivationResponse is the body of POST /offers/{id}/activate/.
type ActivationResponse struct {
	Message    string             `json:"message"`
	Activation *ActivationPayload `json:"activation"`
}

// ActivationRecord is the locally tracked state of one activated offer.
// Field names follow the persisted JSON shape.
type ActivationRecord struct {
	OfferID        int64     `json:"offerId"`
	Code           string    `json:"code"`
	ExpiresAt      time.Time `json:"expiresAt"`
	ActivatedAt    time.Time `json:"activatedAt"`
	OfferTitle     string    `json:"offerTitle,omitempty"`
	RestaurantName string    `json:"restaurantName,omitempty"`
}

// ExpiredAt reports whether the record is no longer valid at now.
func (r ActivationRecord) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// RemainingSeconds returns the whole seconds left before expiry at now,
// never negative.
func (r ActivationRecord) RemainingSeconds(now time.Time) int {
	d := r.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatCountdown renders whole seconds as mm:ss.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
