package activation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/tests/testutil"
)

// memSlot is an in-memory Slot that counts writes.
type memSlot struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	clears  int
	saveErr error
	loadErr error
}

func (m *memSlot) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func (m *memSlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memSlot) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.clears++
	return nil
}

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func payload(code string, ttl time.Duration) model.ActivationPayload {
	return model.ActivationPayload{
		Code:           code,
		ExpiresAt:      t0.Add(ttl),
		CreatedAt:      t0,
		OfferTitle:     "Pizza Night",
		RestaurantName: "Luigi's",
	}
}

func openStore(t *testing.T, slot Slot, clock *testutil.Clock) *Store {
	t.Helper()
	s, err := Open(context.Background(), slot, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestActivate_IsActiveAndRemaining(t *testing.T) {
	clock := testutil.NewClock(t0)
	s := openStore(t, &memSlot{}, clock)

	require.NoError(t, s.Activate(context.Background(), 7, payload("ABC123", 90*time.Second)))

	assert.True(t, s.IsActive(7))
	assert.Equal(t, 90, s.RemainingSeconds(7))

	r, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, int64(7), r.OfferID)
	assert.Equal(t, "ABC123", r.Code)
	assert.Equal(t, t0, r.ActivatedAt)
	assert.Equal(t, "Luigi's", r.RestaurantName)
}

func TestRemainingSeconds_Floors(t *testing.T) {
	clock := testutil.NewClock(t0)
	s := openStore(t, &memSlot{}, clock)
	require.NoError(t, s.Activate(context.Background(), 1, payload("ABC123", 60*time.Second)))

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 58, s.RemainingSeconds(1))

	clock.Advance(time.Hour)
	assert.Equal(t, 0, s.RemainingSeconds(1))
	assert.Equal(t, 0, s.RemainingSeconds(99), "unknown offer")
}

func TestActivate_DefaultsActivatedAtToNow(t *testing.T) {
	clock := testutil.NewClock(t0.Add(5 * time.Second))
	s := openStore(t, &memSlot{}, clock)

	p := payload("ABC123", time.Minute)
	p.CreatedAt = time.Time{}
	require.NoError(t, s.Activate(context.Background(), 1, p))

	r, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), r.ActivatedAt)
}

func TestActivate_RejectsInvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		p    model.ActivationPayload
	}{
		{"missing code", model.ActivationPayload{ExpiresAt: t0.Add(time.Minute)}},
		{"non alphanumeric code", model.ActivationPayload{Code: "AB-12", ExpiresAt: t0.Add(time.Minute)}},
		{"missing expiry", model.ActivationPayload{Code: "ABC123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := &memSlot{}
			s := openStore(t, slot, testutil.NewClock(t0))

			err := s.Activate(context.Background(), 1, tt.p)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.False(t, s.IsActive(1))
			assert.Zero(t, slot.saves)
		})
	}
}

func TestActivate_OverwritesExisting(t *testing.T) {
	clock := testutil.NewClock(t0)
	s := openStore(t, &memSlot{}, clock)
	ctx := context.Background()

	require.NoError(t, s.Activate(ctx, 3, payload("FIRST1", time.Minute)))
	require.NoError(t, s.Activate(ctx, 3, payload("SECOND", 2*time.Minute)))

	r, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, "SECOND", r.Code)
	assert.Equal(t, 120, s.RemainingSeconds(3))
	assert.Len(t, s.Records(), 1)
}

func TestActivate_PersistFailureKeepsRecord(t *testing.T) {
	slot := &memSlot{}
	s := openStore(t, slot, testutil.NewClock(t0))
	slot.saveErr = errors.New("disk full")

	err := s.Activate(context.Background(), 1, payload("ABC123", time.Minute))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, s.IsActive(1))
}

func TestIsActive_ExpiredIsFalseAndPure(t *testing.T) {
	clock := testutil.NewClock(t0)
	slot := &memSlot{}
	s := openStore(t, slot, clock)
	require.NoError(t, s.Activate(context.Background(), 1, payload("ABC123", 10*time.Second)))
	saves := slot.saves

	clock.Advance(10 * time.Second)
	assert.False(t, s.IsActive(1), "expiresAt == now is expired")
	assert.False(t, s.IsActive(1))
	_, ok := s.Get(1)
	assert.False(t, ok)
	assert.Empty(t, s.Records())
	assert.Equal(t, saves, slot.saves, "reads never persist")
}

func TestPrune_Idempotent(t *testing.T) {
	clock := testutil.NewClock(t0)
	slot := &memSlot{}
	s := openStore(t, slot, clock)
	ctx := context.Background()

	require.NoError(t, s.Activate(ctx, 1, payload("SHORT1", 10*time.Second)))
	require.NoError(t, s.Activate(ctx, 2, payload("LONG22", time.Hour)))
	clock.Advance(time.Minute)
	saves := slot.saves

	n, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, saves+1, slot.saves)

	n, err = s.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, saves+1, slot.saves, "nothing removed, nothing written")

	reopened := openStore(t, slot, clock)
	assert.False(t, reopened.IsActive(1))
	assert.True(t, reopened.IsActive(2))
}

func TestRecords_OrderedByExpiry(t *testing.T) {
	s := openStore(t, &memSlot{}, testutil.NewClock(t0))
	ctx := context.Background()

	require.NoError(t, s.Activate(ctx, 1, payload("AAAAAA", 3*time.Minute)))
	require.NoError(t, s.Activate(ctx, 2, payload("BBBBBB", time.Minute)))
	require.NoError(t, s.Activate(ctx, 3, payload("CCCCCC", 2*time.Minute)))

	var ids []int64
	for _, r := range s.Records() {
		ids = append(ids, r.OfferID)
	}
	assert.Equal(t, []int64{2, 3, 1}, ids)
}

func TestOpen_RoundTripKeepsValidSet(t *testing.T) {
	clock := testutil.NewClock(t0)
	slot := &memSlot{}
	s := openStore(t, slot, clock)
	ctx := context.Background()

	require.NoError(t, s.Activate(ctx, 1, payload("AAAAAA", 30*time.Second)))
	require.NoError(t, s.Activate(ctx, 2, payload("BBBBBB", 5*time.Minute)))
	require.NoError(t, s.Activate(ctx, 3, payload("CCCCCC", 10*time.Minute)))

	clock.Advance(time.Minute)
	before := s.Records()

	reopened := openStore(t, slot, clock)
	assert.Equal(t, before, reopened.Records())
	assert.Len(t, before, 2)
}

func TestOpen_DropsExpiredAndRewrites(t *testing.T) {
	slot := &memSlot{data: []byte(`{"version":1,"records":{
		"1":{"offerId":1,"code":"OLD111","expiresAt":"2026-03-14T17:00:00Z","activatedAt":"2026-03-14T16:58:00Z"},
		"2":{"offerId":2,"code":"NEW222","expiresAt":"2026-03-14T18:01:00Z","activatedAt":"2026-03-14T17:59:00Z"}
	}}`)}

	s := openStore(t, slot, testutil.NewClock(t0))

	assert.False(t, s.IsActive(1))
	assert.True(t, s.IsActive(2))
	assert.Equal(t, 60, s.RemainingSeconds(2))
	assert.Equal(t, 1, slot.saves)
	assert.NotContains(t, string(slot.data), "OLD111")
}

func TestOpen_LegacyShape(t *testing.T) {
	slot := &memSlot{data: []byte(`{
		"5":{"offerId":5,"code":"LEG555","expiresAt":"2026-03-14T18:02:00Z","activatedAt":"2026-03-14T18:00:00Z","offerTitle":"Tacos","restaurantName":"El Sol"}
	}`)}

	s := openStore(t, slot, testutil.NewClock(t0))

	r, ok := s.Get(5)
	require.True(t, ok)
	assert.Equal(t, "LEG555", r.Code)
	assert.Equal(t, "El Sol", r.RestaurantName)
	assert.Contains(t, string(slot.data), `"version":1`, "legacy data rewritten as versioned")
}

func TestOpen_CorruptDataStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"array", `[1,2,3]`},
		{"bad key", `{"abc":{"code":"X","expiresAt":"2026-03-14T18:02:00Z"}}`},
		{"bad record", `{"1":"nope"}`},
		{"future version", `{"version":2,"records":{}}`},
		{"records wrong type", `{"version":1,"records":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := &memSlot{data: []byte(tt.data)}

			var s *Store
			require.NotPanics(t, func() {
				var err error
				s, err = Open(context.Background(), slot, WithClock(testutil.NewClock(t0).Now))
				require.NoError(t, err)
			})
			assert.Empty(t, s.Records())
			assert.Equal(t, 1, slot.clears)
			assert.Nil(t, slot.data)
		})
	}
}

func TestOpen_EmptySlot(t *testing.T) {
	slot := &memSlot{}
	s := openStore(t, slot, testutil.NewClock(t0))

	assert.Empty(t, s.Records())
	assert.Zero(t, slot.saves)
	assert.Zero(t, slot.clears)
}

func TestOpen_LoadErrorFails(t *testing.T) {
	_, err := Open(context.Background(), &memSlot{loadErr: errors.New("locked")})
	assert.Error(t, err)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := openStore(t, &memSlot{}, testutil.NewClock(t0))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = s.Activate(ctx, id, payload("CODE12", time.Minute))
			_ = s.IsActive(id)
			_ = s.RemainingSeconds(id)
			_, _ = s.Prune(ctx)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Records(), 20)
}
