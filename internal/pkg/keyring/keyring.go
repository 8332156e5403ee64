package keyring

import (
	"crypto/rand"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"netpanel/internal/pkg/keystore"
)

// KeySize is the length of generated signing keys in bytes.
const KeySize = 64

var ErrNoSigningKey = errors.New("no signing key available")

// Store is the durable slot storage for sealed signing keys.
type Store interface {
	Save(slot keystore.Slot, key []byte, createdAt time.Time) error
	Load(slot keystore.Slot) ([]byte, time.Time, error)
}

// Key is one piece of symmetric signing material.
type Key struct {
	Bytes     []byte
	CreatedAt time.Time
}

// snapshot is an immutable active/previous pair. Rotation publishes a whole
// new snapshot, so readers observe either the pre- or post-rotation set and
// never an active key without its matching previous key.
type snapshot struct {
	active   *Key
	previous *Key
}

// Manager owns the signing key pair and decides when to rotate. Writes go
// through InitializeOrRotate only; all other consumers read the published
// snapshot without locking.
type Manager struct {
	store    Store
	lifetime time.Duration
	now      func() time.Time

	mu      sync.Mutex // serializes rotation checks
	current atomic.Pointer[snapshot]
}

func NewManager(store Store, lifetime time.Duration) *Manager {
	m := &Manager{store: store, lifetime: lifetime, now: time.Now}
	m.current.Store(&snapshot{})
	return m
}

// InitializeOrRotate loads the persisted keys and rotates when the active key
// has outlived its lifetime. The decision is driven by the persisted creation
// time, so repeated calls within one lifetime window are no-ops and the
// behavior survives process restarts.
func (m *Manager) InitializeOrRotate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	activeKey, createdAt, err := m.store.Load(keystore.SlotActive)
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound):
		return m.generateActive()
	case errors.Is(err, keystore.ErrKeyCorrupt):
		log.Printf("keyring: active slot unreadable, generating a fresh key: %v", err)
		return m.generateActive()
	case err != nil:
		return err
	}

	if m.now().Sub(createdAt) > m.lifetime {
		return m.rotate(activeKey, createdAt)
	}

	m.current.Store(&snapshot{
		active:   &Key{Bytes: activeKey, CreatedAt: createdAt},
		previous: m.loadPrevious(),
	})
	return nil
}

func (m *Manager) generateActive() error {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	createdAt := m.now().UTC()
	if err := m.store.Save(keystore.SlotActive, key, createdAt); err != nil {
		return err
	}
	m.current.Store(&snapshot{active: &Key{Bytes: key, CreatedAt: createdAt}})
	return nil
}

func (m *Manager) rotate(activeKey []byte, activeCreated time.Time) error {
	// Archive the outgoing previous key. Best effort: an archive failure must
	// not block the rotation itself.
	if prevKey, prevCreated, err := m.store.Load(keystore.SlotPrevious); err == nil {
		if err := m.store.Save(keystore.SlotArchive, prevKey, prevCreated); err != nil {
			log.Printf("keyring: archiving previous key failed: %v", err)
		}
	}

	if err := m.store.Save(keystore.SlotPrevious, activeKey, activeCreated); err != nil {
		return err
	}

	newKey := make([]byte, KeySize)
	if _, err := rand.Read(newKey); err != nil {
		return err
	}
	createdAt := m.now().UTC()
	if err := m.store.Save(keystore.SlotActive, newKey, createdAt); err != nil {
		return err
	}

	m.current.Store(&snapshot{
		active:   &Key{Bytes: newKey, CreatedAt: createdAt},
		previous: &Key{Bytes: activeKey, CreatedAt: activeCreated},
	})
	log.Printf("keyring: signing key rotated, previous key retained for verification")
	return nil
}

func (m *Manager) loadPrevious() *Key {
	key, createdAt, err := m.store.Load(keystore.SlotPrevious)
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound):
		return nil
	case err != nil:
		log.Printf("keyring: previous key unreadable, dropped from verification set: %v", err)
		return nil
	}
	return &Key{Bytes: key, CreatedAt: createdAt}
}

// SigningKey returns the active key. New tokens are always signed with it.
func (m *Manager) SigningKey() ([]byte, error) {
	snap := m.current.Load()
	if snap.active == nil {
		return nil, ErrNoSigningKey
	}
	return snap.active.Bytes, nil
}

// ValidKeys returns the verification set, active key first, then the previous
// key while it is still retained. Tokens signed just before a rotation keep
// verifying against the previous key.
func (m *Manager) ValidKeys() [][]byte {
	snap := m.current.Load()
	keys := make([][]byte, 0, 2)
	if snap.active != nil {
		keys = append(keys, snap.active.Bytes)
	}
	if snap.previous != nil {
		keys = append(keys, snap.previous.Bytes)
	}
	return keys
}

// Healthy reports whether an active signing key is present.
func (m *Manager) Healthy() bool {
	return m.current.Load().active != nil
}
