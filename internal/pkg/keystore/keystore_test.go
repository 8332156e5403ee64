package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, secret string) *FileStore {
	t.Helper()
	sealer, err := NewAESSealer(secret)
	require.NoError(t, err)
	store, err := NewFileStore(t.TempDir(), sealer)
	require.NoError(t, err)
	return store
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, "test-secret")

	key := []byte("0123456789abcdef0123456789abcdef")
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(SlotActive, key, createdAt))

	got, gotCreated, err := store.Load(SlotActive)
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.True(t, gotCreated.Equal(createdAt))
}

func TestFileStore_LoadMissingSlot(t *testing.T) {
	store := newTestStore(t, "test-secret")

	_, _, err := store.Load(SlotPrevious)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileStore_CorruptData(t *testing.T) {
	sealer, err := NewAESSealer("test-secret")
	require.NoError(t, err)
	dir := t.TempDir()
	store, err := NewFileStore(dir, sealer)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "signing_key_active.bin"), []byte("garbage"), 0o600))

	_, _, err = store.Load(SlotActive)
	assert.ErrorIs(t, err, ErrKeyCorrupt)
}

func TestFileStore_ForeignSecretIsCorrupt(t *testing.T) {
	dir := t.TempDir()

	sealerA, err := NewAESSealer("secret-a")
	require.NoError(t, err)
	storeA, err := NewFileStore(dir, sealerA)
	require.NoError(t, err)
	require.NoError(t, storeA.Save(SlotActive, []byte("key-material"), time.Now()))

	sealerB, err := NewAESSealer("secret-b")
	require.NoError(t, err)
	storeB, err := NewFileStore(dir, sealerB)
	require.NoError(t, err)

	_, _, err = storeB.Load(SlotActive)
	assert.ErrorIs(t, err, ErrKeyCorrupt)
}

func TestFileStore_OverwriteSlot(t *testing.T) {
	store := newTestStore(t, "test-secret")

	require.NoError(t, store.Save(SlotActive, []byte("first"), time.Now()))
	require.NoError(t, store.Save(SlotActive, []byte("second"), time.Now()))

	got, _, err := store.Load(SlotActive)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestAESSealer_SealUnseal(t *testing.T) {
	sealer, err := NewAESSealer("test-secret")
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("plain"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "plain")

	plain, err := sealer.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), plain)

	// Flipping one ciphertext bit must fail authentication.
	sealed[len(sealed)-1] ^= 0x01
	_, err = sealer.Unseal(sealed)
	assert.ErrorIs(t, err, ErrKeyCorrupt)
}
