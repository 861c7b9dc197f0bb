package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkStateStore(t *testing.T) {
	t.Run("LoadMissing", func(t *testing.T) {
		store := NewLinkStateStore(filepath.Join(t.TempDir(), "state.json"))

		state, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, state)

		_, ok, err := store.LoadNonce(LinkKey{SenderID: 1})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "state.json")
		store := NewLinkStateStore(path)

		require.NoError(t, store.Save(&LinkState{
			Links: []LinkEntry{
				{SenderID: 9, KeyVersion: 1, NextNonce: 300},
				{SenderID: 2, KeyVersion: 0, NextNonce: 100},
			},
		}))

		state, err := store.Load()
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, StateVersion, state.Version)
		assert.False(t, state.SavedAt.IsZero())
		require.Len(t, state.Links, 2)
		assert.Equal(t, uint16(2), state.Links[0].SenderID, "links are sorted by sender")
		assert.Equal(t, uint32(300), state.Links[1].NextNonce)

		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temp file is renamed away")
	})

	t.Run("NonceUpsert", func(t *testing.T) {
		store := NewLinkStateStore(filepath.Join(t.TempDir(), "state.json"))
		a := LinkKey{SenderID: 7, KeyVersion: 1}
		b := LinkKey{SenderID: 7, KeyVersion: 2}

		require.NoError(t, store.SaveNonce(a, 64))
		require.NoError(t, store.SaveNonce(b, 10))
		require.NoError(t, store.SaveNonce(a, 128))

		next, ok, err := store.LoadNonce(a)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint32(128), next)

		next, ok, err = store.LoadNonce(b)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint32(10), next)

		state, err := store.Load()
		require.NoError(t, err)
		assert.Len(t, state.Links, 2)
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewLinkStateStore(filepath.Join(t.TempDir(), "state.json"))
		require.NoError(t, store.SaveNonce(LinkKey{SenderID: 1}, 5))
		require.NoError(t, store.Clear())
		require.NoError(t, store.Clear(), "clearing twice is not an error")

		state, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("NewerVersionRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0600))

		_, err := NewLinkStateStore(path).Load()
		assert.Error(t, err)
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, _, err := NewLinkStateStore(path).LoadNonce(LinkKey{})
		assert.Error(t, err)
	})
}

func TestBadgerNonceStore(t *testing.T) {
	store, err := OpenBadgerNonceStore("")
	require.NoError(t, err)
	defer store.Close()

	link := LinkKey{SenderID: 0x0102, KeyVersion: 3}

	_, ok, err := store.LoadNonce(link)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveNonce(link, 0xDEADBEEF))
	require.NoError(t, store.SaveNonce(LinkKey{SenderID: 0x0102, KeyVersion: 4}, 1))

	next, ok, err := store.LoadNonce(link)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(0xDEADBEEF), next)
}

func TestBadgerNonceStoreReopen(t *testing.T) {
	dir := t.TempDir()
	link := LinkKey{SenderID: 5, KeyVersion: 1}

	store, err := OpenBadgerNonceStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveNonce(link, 4096))
	require.NoError(t, store.Close())

	store, err = OpenBadgerNonceStore(dir)
	require.NoError(t, err)
	defer store.Close()

	next, ok, err := store.LoadNonce(link)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(4096), next)
}

func TestMemoryNonceStore(t *testing.T) {
	store := NewMemoryNonceStore()
	link := LinkKey{SenderID: 1}

	_, ok, _ := store.LoadNonce(link)
	assert.False(t, ok)

	require.NoError(t, store.SaveNonce(link, 42))
	next, ok, _ := store.LoadNonce(link)
	assert.True(t, ok)
	assert.Equal(t, uint32(42), next)
	assert.Equal(t, 1, store.Saves())
}

func TestLinkKeyString(t *testing.T) {
	assert.Equal(t, "513/7", LinkKey{SenderID: 513, KeyVersion: 7}.String())
}
