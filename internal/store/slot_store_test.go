package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahan44/airdine/internal/store"
	"github.com/kahan44/airdine/tests/testutil"
)

func TestSlots_GetPutDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetSlot(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSlotNotFound)

	require.NoError(t, s.PutSlot(ctx, "a", []byte(`{"x":1}`)))
	require.NoError(t, s.PutSlot(ctx, "a", []byte(`{"x":2}`)))

	data, err := s.GetSlot(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":2}`, string(data))

	require.NoError(t, s.DeleteSlot(ctx, "a"))
	_, err = s.GetSlot(ctx, "a")
	assert.ErrorIs(t, err, store.ErrSlotNotFound)

	assert.NoError(t, s.DeleteSlot(ctx, "a"), "deleting a missing slot")
}

func TestNamedSlot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	slot := store.NewNamedSlot(s, "airdine_activated_offers")
	assert.Equal(t, "airdine_activated_offers", slot.Name())

	data, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "missing slot loads as nil")

	require.NoError(t, slot.Save(ctx, []byte("payload")))

	other := store.NewNamedSlot(s, "other")
	data, err = other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "slots are isolated by name")

	data, err = slot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, slot.Clear(ctx))
	data, err = slot.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}
