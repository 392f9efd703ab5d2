package model

import "time"

// Notification represents an alert surfaced to the user about offer
// activity, such as a newly featured offer.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// OfferID links this notification to the originating offer.
	OfferID int64 `json:"offer_id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
