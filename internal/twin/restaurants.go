package twin

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kahan44/airdine/internal/model"
)

const recentReviews = 10

// open reports whether now falls inside the restaurant's opening hours.
func (r *restaurantState) open(now time.Time) bool {
	hms := now.UTC().Format("15:04:05")
	return r.info.OpeningTime <= hms && hms <= r.info.ClosingTime
}

func (r *restaurantState) rating() (float64, int) {
	if len(r.reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rv := range r.reviews {
		sum += rv.Rating
	}
	avg := float64(sum) / float64(len(r.reviews))
	return math.Round(avg*100) / 100, len(r.reviews)
}

func (r *restaurantState) matches(cuisine, price, search string) bool {
	if cuisine != "" && !strings.Contains(strings.ToLower(r.info.Cuisine), cuisine) {
		return false
	}
	if price != "" && r.info.PriceRange != price {
		return false
	}
	if search == "" {
		return true
	}
	for _, field := range []string{r.info.Name, r.info.Cuisine, r.info.Description} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// restaurantViewLocked fills the derived fields of a restaurant.
func (t *Twin) restaurantViewLocked(id uuid.UUID, r *restaurantState, now time.Time) model.Restaurant {
	out := r.info
	out.AverageRating, out.TotalReviews = r.rating()
	out.IsOpen = r.open(now)
	for _, o := range t.offers {
		if o.restaurantID == id && o.valid(now) {
			out.ActiveOffersCount++
		}
	}
	out.HasOffers = out.ActiveOffersCount > 0
	return out
}

// lookupRestaurant resolves the {restaurantID} URL parameter, writing a 404
// when it names no restaurant. Callers must hold t.mu.
func (t *Twin) lookupRestaurant(w http.ResponseWriter, r *http.Request) (uuid.UUID, *restaurantState, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return uuid.Nil, nil, false
	}
	rs, ok := t.restaurants[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return uuid.Nil, nil, false
	}
	return id, rs, true
}

// handleListRestaurants serves the directory, best rated first. The
// cuisine, price_range and search query parameters narrow it; cuisine and
// search match case-insensitive substrings.
func (t *Twin) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cuisine := strings.ToLower(q.Get("cuisine"))
	price := q.Get("price_range")
	search := strings.ToLower(q.Get("search"))

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := []model.Restaurant{}
	for id, rs := range t.restaurants {
		if !rs.matches(cuisine, price, search) {
			continue
		}
		out = append(out, t.restaurantViewLocked(id, rs, now))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].Name < out[j].Name
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"next":     nil,
		"previous": nil,
		"results":  out,
	})
}

func (t *Twin) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, rs, ok := t.lookupRestaurant(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t.restaurantViewLocked(id, rs, t.now()))
}

// handleRestaurantMenu serves the available items grouped by category.
func (t *Twin) handleRestaurantMenu(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, rs, ok := t.lookupRestaurant(w, r)
	if !ok {
		return
	}

	categories := map[string][]model.MenuItem{}
	total := 0
	for name, items := range rs.menu {
		for _, it := range items {
			it.CategoryName = name
			it.IsAvailable = true
			categories[name] = append(categories[name], it)
			total++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"restaurant_id":   id.String(),
		"restaurant_name": rs.info.Name,
		"total_items":     total,
		"categories":      categories,
	})
}

// handleRestaurantReviews serves the rating summary and the most recent
// reviews, newest first.
func (t *Twin) handleRestaurantReviews(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, rs, ok := t.lookupRestaurant(w, r)
	if !ok {
		return
	}

	reviews := append([]model.Review{}, rs.reviews...)
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	if len(reviews) > recentReviews {
		reviews = reviews[:recentReviews]
	}

	avg, total := rs.rating()
	writeJSON(w, http.StatusOK, model.Reviews{
		RestaurantID:   id.String(),
		RestaurantName: rs.info.Name,
		TotalReviews:   total,
		AverageRating:  avg,
		Reviews:        reviews,
	})
}
