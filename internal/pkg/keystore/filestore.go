package keystore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Slot names one of the durable key positions.
type Slot string

const (
	SlotActive   Slot = "active"
	SlotPrevious Slot = "previous"
	SlotArchive  Slot = "archive"
)

var (
	// ErrKeyNotFound means the slot has never been written.
	ErrKeyNotFound = errors.New("no key stored in slot")
	// ErrKeyCorrupt means the slot exists but cannot be decrypted or decoded.
	// Callers treat both errors as "no usable key" but log them differently.
	ErrKeyCorrupt = errors.New("key material corrupt or sealed under a different secret")
)

type envelope struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps one sealed key file per slot under a directory.
type FileStore struct {
	dir    string
	sealer Sealer
}

func NewFileStore(dir string, sealer Sealer) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, sealer: sealer}, nil
}

func (s *FileStore) path(slot Slot) string {
	return filepath.Join(s.dir, "signing_key_"+string(slot)+".bin")
}

// Save seals the key together with its creation time and writes it via a
// temp-file rename, so a concurrent Load never observes a partial key.
func (s *FileStore) Save(slot Slot, key []byte, createdAt time.Time) error {
	payload, err := json.Marshal(envelope{
		Key:       base64.StdEncoding.EncodeToString(key),
		CreatedAt: createdAt.UTC(),
	})
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(payload)
	if err != nil {
		return err
	}
	tmp := s.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(slot))
}

// Load returns the raw key bytes and creation time for a slot.
func (s *FileStore) Load(slot Slot) ([]byte, time.Time, error) {
	sealed, err := os.ReadFile(s.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, ErrKeyNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	payload, err := s.sealer.Unseal(sealed)
	if err != nil {
		return nil, time.Time{}, err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, time.Time{}, ErrKeyCorrupt
	}
	key, err := base64.StdEncoding.DecodeString(env.Key)
	if err != nil || len(key) == 0 {
		return nil, time.Time{}, ErrKeyCorrupt
	}
	return key, env.CreatedAt, nil
}
