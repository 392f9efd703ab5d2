package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(keyring.NewArrayKeyring(nil))
}

func TestStore_GetSetDelete(t *testing.T) {
	s := newTestStore()

	v, err := s.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.Set("k", "secret"))
	v, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"), "deleting twice")

	v, err = s.Get("k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestStore_Tokens(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SaveTokens("acc", "ref"))
	access, refresh, err := s.Tokens()
	require.NoError(t, err)
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)

	require.NoError(t, s.SaveAccess("acc2"))
	access, _, err = s.Tokens()
	require.NoError(t, err)
	assert.Equal(t, "acc2", access)

	require.NoError(t, s.SaveTokens("", "ref"))
	access, refresh, err = s.Tokens()
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Equal(t, "ref", refresh)
}
