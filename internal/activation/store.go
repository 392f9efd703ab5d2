// Package activation tracks which offers the current user has activated and
// when each activation code expires. Records survive restarts through a
// durable Slot.
package activation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/validator"
)

// ErrInvalidPayload is returned by Activate when the remote payload lacks a
// usable code or expiry.
var ErrInvalidPayload = errors.New("invalid activation payload")

// Store is the process-wide map of offer ID to activation record. It is the
// only writer of its records and persists the whole map after every
// mutation. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	slot    Slot
	records map[int64]model.ActivationRecord

	now func() time.Time
	log zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for load and persistence warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log.With().Str("component", "activation").Logger() }
}

// Open loads the store from slot. Expired entries are dropped and malformed
// contents are discarded so the store starts empty; neither is an error.
// Open fails only when the slot cannot be read.
func Open(ctx context.Context, slot Slot, opts ...Option) (*Store, error) {
	s := &Store{
		slot:    slot,
		records: make(map[int64]model.ActivationRecord),
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading activations: %w", err)
	}

	records, legacy, err := decodeRecords(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable activations")
		if err := slot.Clear(ctx); err != nil {
			s.log.Error().Err(err).Msg("clearing activation slot")
		}
		return s, nil
	}

	now := s.now()
	dropped := 0
	for id, r := range records {
		if r.Code == "" || r.ExpiredAt(now) {
			dropped++
			continue
		}
		s.records[id] = r
	}

	s.log.Debug().Int("loaded", len(s.records)).Int("dropped", dropped).Msg("activations loaded")

	if dropped > 0 || legacy {
		if err := s.persistLocked(ctx); err != nil {
			s.log.Warn().Err(err).Msg("rewriting activation slot")
		}
	}

	return s, nil
}

// Activate records the activation returned by the backend for offerID,
// replacing any previous record. The in-memory record is kept even when
// persisting it fails; the persistence error is returned.
func (s *Store) Activate(ctx context.Context, offerID int64, p model.ActivationPayload) error {
	if err := validator.Get().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	activatedAt := p.CreatedAt
	if activatedAt.IsZero() {
		activatedAt = s.now()
	}

	s.records[offerID] = model.ActivationRecord{
		OfferID:        offerID,
		Code:           p.Code,
		ExpiresAt:      p.ExpiresAt,
		ActivatedAt:    activatedAt,
		OfferTitle:     p.OfferTitle,
		RestaurantName: p.RestaurantName,
	}

	s.log.Info().
		Int64("offer_id", offerID).
		Time("expires_at", p.ExpiresAt).
		Msg("offer activated")

	return s.persistLocked(ctx)
}

// IsActive reports whether offerID has a record that has not expired.
// It never mutates the store; expired records are removed by Prune.
func (s *Store) IsActive(offerID int64) bool {
	_, ok := s.Get(offerID)
	return ok
}

// Get returns the record for offerID if it is still active.
func (s *Store) Get(offerID int64) (model.ActivationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[offerID]
	if !ok || r.ExpiredAt(s.now()) {
		return model.ActivationRecord{}, false
	}
	return r, true
}

// RemainingSeconds returns the whole seconds until offerID's activation
// expires, or 0 when there is no active record.
func (s *Store) RemainingSeconds(offerID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[offerID]
	if !ok {
		return 0
	}
	return r.RemainingSeconds(s.now())
}

// Records returns the active records ordered by expiry, soonest first.
func (s *Store) Records() []model.ActivationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]model.ActivationRecord, 0, len(s.records))
	for _, r := range s.records {
		if !r.ExpiredAt(now) {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].OfferID < out[j].OfferID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// Prune removes every expired record and returns how many were removed.
// The slot is rewritten only when something was removed.
func (s *Store) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, r := range s.records {
		if r.ExpiredAt(now) {
			delete(s.records, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	s.log.Debug().Int("count", removed).Msg("pruned expired activations")
	return removed, s.persistLocked(ctx)
}

// persistLocked writes the full map to the slot. Caller holds s.mu or is
// the only goroutine with access.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := encodeRecords(s.records)
	if err != nil {
		return err
	}
	if err := s.slot.Save(ctx, data); err != nil {
		s.log.Error().Err(err).Msg("persisting activations")
		return fmt.Errorf("persisting activations: %w", err)
	}
	return nil
}
