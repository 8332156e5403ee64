package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-SHA256 parameters. Changing these invalidates every stored credential,
// so they are fixed constants rather than configuration.
const (
	saltLength = 16
	keyLength  = 32
	iterations = 10000
)

var ErrWeakPassword = errors.New("password does not meet complexity requirements")

// Hash derives a salted credential hash for storage. A fresh random salt is
// generated per call; both values are returned base64-encoded.
func Hash(password string) (hash string, salt string, err error) {
	saltBytes := make([]byte, saltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", err
	}
	derived := pbkdf2.Key([]byte(password), saltBytes, iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(derived), base64.StdEncoding.EncodeToString(saltBytes), nil
}

// Verify recomputes the derivation with the stored salt and compares the
// result in constant time.
func Verify(password, storedHash, storedSalt string) bool {
	saltBytes, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	derived := pbkdf2.Key([]byte(password), saltBytes, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

// Validate enforces the registration policy: at least 8 characters containing
// an uppercase letter, a lowercase letter, a digit and a symbol.
func Validate(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
