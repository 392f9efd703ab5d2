package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/store"
)

// SyncState represents the current state of a feed sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the sync state for a single feed.
type SyncStatus struct {
	Feed     model.Feed
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a sync operation completes.
type SyncResultMsg struct {
	Offers    []model.Offer
	Feed      model.Feed
	Error     error
	AuthError *AuthErrorMsg
	NewCount  int
}

// AuthErrorMsg is a tea.Msg sent when the backend rejects the credentials.
type AuthErrorMsg struct {
	Feed    model.Feed
	Message string
}

// OfferSource fetches the offers of a feed. *api.Client implements it.
type OfferSource interface {
	Feed(ctx context.Context, feed model.Feed) ([]model.Offer, error)
}

// Activator receives activations the backend already holds for the user.
// *activation.Store implements it.
type Activator interface {
	IsActive(offerID int64) bool
	Activate(ctx context.Context, offerID int64, p model.ActivationPayload) error
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when no poll interval is configured.
const defaultInterval = 120 * time.Second

// Poller orchestrates background polling of the offer feeds.
type Poller struct {
	store     store.Store
	source    OfferSource
	activator Activator
	feeds     []model.Feed
	interval  time.Duration
	log       zerolog.Logger

	statuses  map[model.Feed]*SyncStatus
	resultCh  chan SyncResultMsg
	triggers  map[model.Feed]chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	upsertMu  gosync.Mutex
	running   bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithActivator lets the poller hand backend-held pending activations to
// the local activation store.
func WithActivator(a Activator) Option {
	return func(p *Poller) { p.activator = a }
}

// WithLogger sets the poller logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Poller) { p.log = log.With().Str("component", "sync").Logger() }
}

// New creates a new Poller that caches the all and featured feeds of src
// into s.
func New(s store.Store, src OfferSource, opts ...Option) *Poller {
	p := &Poller{
		store:     s,
		source:    src,
		feeds:     []model.Feed{model.FeedAll, model.FeedFeatured},
		interval:  defaultInterval,
		log:       zerolog.Nop(),
		statuses:  make(map[model.Feed]*SyncStatus),
		resultCh:  make(chan SyncResultMsg, 16),
		triggers:  make(map[model.Feed]chan struct{}),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, f := range p.feeds {
		p.statuses[f] = &SyncStatus{Feed: f, State: SyncIdle}
		p.triggers[f] = make(chan struct{}, 1)
	}
	return p
}

// Start returns a tea.Cmd that starts all polling goroutines and
// subscribes to results. The returned command waits on the result
// channel and returns SyncResultMsg messages to the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	for _, f := range p.feeds {
		p.wg.Add(1)
		go p.pollFeed(f)
	}

	return p.waitForResult()
}

// Stop halts all polling goroutines and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshAll triggers an immediate poll of every feed.
func (p *Poller) RefreshAll() tea.Cmd {
	for _, f := range p.feeds {
		p.RefreshFeed(f)
	}
	return nil
}

// RefreshFeed triggers an immediate poll of a single feed.
func (p *Poller) RefreshFeed(feed model.Feed) tea.Cmd {
	ch, ok := p.triggers[feed]
	if !ok {
		return nil
	}
	select {
	case ch <- struct{}{}:
	default:
		// A refresh is already pending.
	}
	return nil
}

// GetStatuses returns the current sync status of every feed, in feed order.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.feeds))
	for _, f := range p.feeds {
		statuses = append(statuses, *p.statuses[f])
	}
	return statuses
}

// pollFeed runs the polling loop for a single feed.
func (p *Poller) pollFeed(feed model.Feed) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Do an initial fetch immediately
	p.fetchAndUpsert(feed)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetchAndUpsert(feed)
		case <-p.triggers[feed]:
			p.fetchAndUpsert(feed)
		}
	}
}

// fetchAndUpsert performs a single fetch, upserts results to the store,
// and sends a SyncResultMsg on the result channel.
func (p *Poller) fetchAndUpsert(feed model.Feed) {
	p.setStatus(feed, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	// Stop promptly on shutdown.
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	offers, err := p.source.Feed(ctx, feed)
	if err != nil {
		p.setStatus(feed, SyncError, err)
		p.log.Warn().Err(err).Str("feed", string(feed)).Msg("sync failed")

		if api.IsAuthError(err) {
			p.sendResult(SyncResultMsg{
				Feed:  feed,
				Error: err,
				AuthError: &AuthErrorMsg{
					Feed:    feed,
					Message: "Log in required. Press 's' to update your tokens.",
				},
			})
			return
		}

		p.sendResult(SyncResultMsg{Feed: feed, Error: err})
		return
	}

	newIDs, err := p.storeOffers(ctx, offers)
	if err != nil {
		p.setStatus(feed, SyncError, err)
		p.sendResult(SyncResultMsg{Feed: feed, Error: err})
		return
	}

	p.adoptActivations(ctx, offers)

	p.setStatus(feed, SyncIdle, nil)
	p.log.Debug().Str("feed", string(feed)).Int("offers", len(offers)).Int("new", len(newIDs)).Msg("synced")
	p.sendResult(SyncResultMsg{
		Offers:   offers,
		Feed:     feed,
		NewCount: len(newIDs),
	})
}

// storeOffers upserts offers and records a notification for every featured
// offer not yet cached as featured. Both feeds carry featured offers, so the
// check and the upsert run under upsertMu to notify once.
func (p *Poller) storeOffers(ctx context.Context, offers []model.Offer) (map[int64]bool, error) {
	p.upsertMu.Lock()
	defer p.upsertMu.Unlock()

	newIDs := make(map[int64]bool)
	if len(offers) == 0 {
		return newIDs, nil
	}

	existing, err := p.store.GetOffers(ctx, store.OfferFilter{
		FeaturedOnly: true,
		Limit:        1000,
	})
	if err != nil {
		return nil, fmt.Errorf("reading cached offers: %w", err)
	}
	known := make(map[int64]bool, len(existing))
	for _, o := range existing {
		known[o.ID] = true
	}
	for _, o := range offers {
		if o.IsFeatured && !known[o.ID] {
			newIDs[o.ID] = true
		}
	}

	if err := p.store.UpsertOffers(ctx, offers); err != nil {
		return nil, fmt.Errorf("caching offers: %w", err)
	}

	for _, o := range offers {
		if !newIDs[o.ID] {
			continue
		}
		n := model.Notification{
			OfferID:   o.ID,
			Message:   fmt.Sprintf("Featured: %s at %s (%s)", o.Title, o.RestaurantName, o.Headline()),
			CreatedAt: time.Now(),
		}
		if err := p.store.CreateNotification(ctx, n); err != nil {
			p.log.Warn().Err(err).Int64("offer_id", o.ID).Msg("creating notification")
		}
	}

	return newIDs, nil
}

// adoptActivations records pending activations the backend reports for
// offers that have no local record, so codes issued elsewhere still count
// down here.
func (p *Poller) adoptActivations(ctx context.Context, offers []model.Offer) {
	if p.activator == nil {
		return
	}
	for _, o := range offers {
		ua := o.UserActivation
		if ua == nil || ua.Status != model.ActivationPending || p.activator.IsActive(o.ID) {
			continue
		}
		payload := *ua
		if payload.OfferTitle == "" {
			payload.OfferTitle = o.Title
		}
		if payload.RestaurantName == "" {
			payload.RestaurantName = o.RestaurantName
		}
		if err := p.activator.Activate(ctx, o.ID, payload); err != nil {
			p.log.Warn().Err(err).Int64("offer_id", o.ID).Msg("adopting backend activation")
		}
	}
}

// setStatus updates the sync status for a feed.
func (p *Poller) setStatus(feed model.Feed, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[feed]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
