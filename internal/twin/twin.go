// Package twin is an in-memory stand-in for the AirDine offers backend.
// It serves the same routes and JSON shapes as the real API, issues
// short-lived activation codes, and supports fault injection so clients can
// be exercised against 401s, validation errors and transient failures.
package twin

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/model"
)

const (
	// DefaultActivationTTL is how long an issued activation code is valid.
	DefaultActivationTTL = 2 * time.Minute

	accessTTL  = 5 * time.Minute
	refreshTTL = 24 * time.Hour
)

// offerState is a seeded offer plus the fields the backend keeps private.
type offerState struct {
	offer          model.Offer
	restaurantID   uuid.UUID
	maxUsesPerUser int
}

// restaurantState is a seeded restaurant with its menu and reviews. The
// rating and offer counters of info are derived when it is served.
type restaurantState struct {
	info    model.Restaurant
	menu    map[string][]model.MenuItem
	reviews []model.Review
}

// activation is one issued code.
type activation struct {
	payload model.ActivationPayload
	user    string
}

// Twin holds the backend state. Safe for concurrent use.
type Twin struct {
	mu sync.Mutex

	now    func() time.Time
	ttl    time.Duration
	secret []byte
	log    zerolog.Logger

	restaurants map[uuid.UUID]*restaurantState
	offers      map[int64]*offerState
	activations []*activation
	nextActID   int64

	faults *faultQueue
}

// Option configures a Twin.
type Option func(*Twin)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Twin) { t.now = now }
}

// WithActivationTTL sets how long issued codes stay valid.
func WithActivationTTL(d time.Duration) Option {
	return func(t *Twin) { t.ttl = d }
}

// WithSecret sets the HS256 signing key for issued tokens.
func WithSecret(secret []byte) Option {
	return func(t *Twin) { t.secret = secret }
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Twin) { t.log = log.With().Str("component", "twin").Logger() }
}

// New creates a Twin with seeded restaurants and offers.
func New(opts ...Option) *Twin {
	t := &Twin{
		now:    time.Now,
		ttl:    DefaultActivationTTL,
		secret: []byte("airdine-twin-secret"),
		log:    zerolog.Nop(),
		faults: newFaultQueue(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Reset restores the seed state and drops activations and queued faults.
func (t *Twin) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.restaurants, t.offers = seed(t.now())
	t.activations = nil
	t.nextActID = 1
	t.faults.clear()
}

// Handler returns the HTTP handler serving the API under /api and the
// admin endpoints under /admin.
func (t *Twin) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(t.requestLog)

	r.Route("/api", func(r chi.Router) {
		r.Use(t.faults.middleware("/api"))

		r.Post("/auth/token/", t.handleObtainToken)
		r.Post("/auth/token/refresh/", t.handleRefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(t.optionalAuth)
			r.Get("/restaurants/", t.handleListRestaurants)
			r.Get("/restaurants/{restaurantID}/", t.handleGetRestaurant)
			r.Get("/menu/restaurant/{restaurantID}/", t.handleRestaurantMenu)
			r.Get("/reviews/restaurant/{restaurantID}/", t.handleRestaurantReviews)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(t.optionalAuth)
				r.Get("/", t.handleListOffers)
				r.Get("/featured/", t.handleFeaturedOffers)
				r.Get("/restaurant/{restaurantID}/", t.handleRestaurantOffers)
				r.Get("/{offerID}/", t.handleGetOffer)
			})
			r.Group(func(r chi.Router) {
				r.Use(t.requireAuth)
				r.Post("/{offerID}/activate/", t.handleActivate)
				r.Get("/activations/", t.handleListActivations)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/faults", t.handleInjectFaults)
		r.Delete("/faults", t.handleClearFaults)
		r.Post("/reset", t.handleReset)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

// requestLog logs every request at debug level.
func (t *Twin) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		t.log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

