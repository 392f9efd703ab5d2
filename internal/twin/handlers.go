package twin

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kahan44/airdine/internal/model"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	featuredMax  = 6
)

// newCode returns a random activation code.
func newCode() string {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b)
}

// valid reports whether the offer can be activated at now.
func (o *offerState) valid(now time.Time) bool {
	return o.offer.IsActive && !now.Before(o.offer.ValidFrom) && !now.After(o.offer.ValidUntil)
}

// expireLocked flips pending activations past their expiry to expired.
func (t *Twin) expireLocked(now time.Time) {
	for _, a := range t.activations {
		if a.payload.Status == model.ActivationPending && !a.payload.ExpiresAt.After(now) {
			a.payload.Status = model.ActivationExpired
		}
	}
}

// usesLocked counts the user's activations of an offer, expired ones
// included.
func (t *Twin) usesLocked(user string, offerID int64) int {
	n := 0
	for _, a := range t.activations {
		if a.user == user && a.payload.OfferID == offerID {
			n++
		}
	}
	return n
}

func (t *Twin) pendingLocked(user string, offerID int64) *activation {
	for _, a := range t.activations {
		if a.user == user && a.payload.OfferID == offerID && a.payload.Status == model.ActivationPending {
			return a
		}
	}
	return nil
}

// viewLocked renders an offer for user ("" for anonymous).
func (t *Twin) viewLocked(o *offerState, user string, now time.Time) model.Offer {
	out := o.offer
	out.IsValid = o.valid(now)
	out.FetchedAt = time.Time{}

	if user != "" {
		remaining := o.maxUsesPerUser - t.usesLocked(user, o.offer.ID)
		if remaining < 0 {
			remaining = 0
		}
		out.RemainingUses = &remaining

		if a := t.pendingLocked(user, o.offer.ID); a != nil {
			p := a.payload
			out.UserActivation = &p
		}
	}
	return out
}

// listLocked returns the offers matching keep, visible to user, newest
// featured first like the backend's default ordering.
func (t *Twin) listLocked(user string, now time.Time, keep func(*offerState) bool) []model.Offer {
	t.expireLocked(now)

	var out []model.Offer
	for _, o := range t.offers {
		if !o.valid(now) || !keep(o) {
			continue
		}
		if user != "" && t.usesLocked(user, o.offer.ID) >= o.maxUsesPerUser {
			continue
		}
		out = append(out, t.viewLocked(o, user, now))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFeatured != out[j].IsFeatured {
			return out[i].IsFeatured
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *Twin) handleListOffers(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	offers := t.listLocked(userFrom(r.Context()), t.now(), func(*offerState) bool { return true })
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(offers),
		"next":     nil,
		"previous": nil,
		"results":  nonNil(offers),
	})
}

func (t *Twin) handleFeaturedOffers(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	offers := t.listLocked(userFrom(r.Context()), t.now(), func(o *offerState) bool { return o.offer.IsFeatured })
	if len(offers) > featuredMax {
		offers = offers[:featuredMax]
	}
	writeJSON(w, http.StatusOK, nonNil(offers))
}

func (t *Twin) handleRestaurantOffers(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rid, _, ok := t.lookupRestaurant(w, r)
	if !ok {
		return
	}

	offers := t.listLocked(userFrom(r.Context()), t.now(), func(o *offerState) bool { return o.restaurantID == rid })
	writeJSON(w, http.StatusOK, nonNil(offers))
}

func (t *Twin) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.offers[id]
	if !ok || !o.offer.IsActive {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	now := t.now()
	t.expireLocked(now)
	writeJSON(w, http.StatusOK, t.viewLocked(o, userFrom(r.Context()), now))
}

func (t *Twin) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Offer not found")
		return
	}
	user := userFrom(r.Context())

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.expireLocked(now)

	o, ok := t.offers[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Offer not found")
		return
	}
	if !o.valid(now) {
		writeError(w, http.StatusBadRequest, "Offer is not currently valid")
		return
	}

	if a := t.pendingLocked(user, id); a != nil {
		writeJSON(w, http.StatusOK, model.ActivationResponse{
			Message:    "You already have an active code for this offer",
			Activation: &a.payload,
		})
		return
	}

	if t.usesLocked(user, id) >= o.maxUsesPerUser {
		writeError(w, http.StatusBadRequest, "You have already used this offer or exceeded usage limit")
		return
	}

	a := &activation{
		user: user,
		payload: model.ActivationPayload{
			ID:             t.nextActID,
			OfferID:        id,
			Code:           newCode(),
			Status:         model.ActivationPending,
			ExpiresAt:      now.Add(t.ttl).UTC(),
			CreatedAt:      now.UTC(),
			OfferTitle:     o.offer.Title,
			RestaurantName: o.offer.RestaurantName,
		},
	}
	t.nextActID++
	t.activations = append(t.activations, a)

	t.log.Info().Int64("offer_id", id).Str("user", user).Msg("offer activated")

	writeJSON(w, http.StatusCreated, model.ActivationResponse{
		Message:    "Offer activated successfully! Use this code before it expires.",
		Activation: &a.payload,
	})
}

func (t *Twin) handleListActivations(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked(t.now())

	out := []model.ActivationPayload{}
	for i := len(t.activations) - 1; i >= 0 && len(out) < 20; i-- {
		if a := t.activations[i]; a.user == user {
			out = append(out, a.payload)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// nonNil keeps empty lists serializing as [] rather than null.
func nonNil(offers []model.Offer) []model.Offer {
	if offers == nil {
		return []model.Offer{}
	}
	return offers
}
