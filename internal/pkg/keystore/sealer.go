package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
)

// Sealer encrypts key material before it reaches durable storage and decrypts
// it on the way back. The concrete mechanism (local cipher, KMS, keychain) is
// swappable without touching rotation logic.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Unseal(sealed []byte) ([]byte, error)
}

// AESSealer seals with AES-256-GCM under a key derived from a process-level
// protection secret.
type AESSealer struct {
	aead cipher.AEAD
}

func NewAESSealer(secret string) (*AESSealer, error) {
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSealer{aead: aead}, nil
}

func (s *AESSealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

// Unseal reports ErrKeyCorrupt for anything that fails authentication,
// including data sealed under a different protection secret.
func (s *AESSealer) Unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrKeyCorrupt
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrKeyCorrupt
	}
	return plain, nil
}
