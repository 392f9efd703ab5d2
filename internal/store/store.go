package store

import (
	"context"
	"errors"

	"github.com/kahan44/airdine/internal/model"
)

// ErrSlotNotFound is returned by GetSlot when nothing is stored under a name.
var ErrSlotNotFound = errors.New("slot not found")

// OfferFilter controls filtering, sorting, and pagination for cached
// offer queries.
type OfferFilter struct {
	FeaturedOnly bool
	Query        *string // search title, description, restaurant name
	SortBy       string  // "valid_until", "title", "restaurant_name", "fetched_at"
	SortDesc     bool
	Limit        int
	Offset       int
}

// Store defines the local persistence interface for cached offers,
// notifications, and named slots.
type Store interface {
	// === Offers ===

	UpsertOffers(ctx context.Context, offers []model.Offer) error
	GetOffers(ctx context.Context, filter OfferFilter) ([]model.Offer, error)
	GetOfferByID(ctx context.Context, id int64) (*model.Offer, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// === Slots ===

	GetSlot(ctx context.Context, name string) ([]byte, error)
	PutSlot(ctx context.Context, name string, data []byte) error
	DeleteSlot(ctx context.Context, name string) error
}
