package jwt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Keyring supplies the symmetric signing material. SigningKey is the active
// key; ValidKeys is the verification set (active first, then previous).
type Keyring interface {
	SigningKey() ([]byte, error)
	ValidKeys() [][]byte
}

type Service struct {
	keys     Keyring
	issuer   string
	audience string
	ttl      time.Duration
}

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwtlib.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

func New(keys Keyring, issuer, audience string, ttl time.Duration) *Service {
	return &Service{keys: keys, issuer: issuer, audience: audience, ttl: ttl}
}

// GenerateToken mints an HS256 access token signed with the active key. Every
// token carries a fresh random jti.
func (s *Service) GenerateToken(userID int64, email, name, role string) (string, time.Time, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			Audience:  jwtlib.ClaimStrings{s.audience},
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken checks the signature against every currently valid key, so
// tokens signed just before a rotation stay verifiable until the previous key
// ages out. With no keys loaded, validation fails closed.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	valid := s.keys.ValidKeys()
	if len(valid) == 0 {
		return nil, ErrInvalidToken
	}
	keySet := jwtlib.VerificationKeySet{}
	for _, k := range valid {
		keySet.Keys = append(keySet.Keys, k)
	}

	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwtlib.Token) (any, error) { return keySet, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(s.issuer),
		jwtlib.WithAudience(s.audience),
		jwtlib.WithLeeway(time.Minute),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshToken returns a new opaque refresh credential. The raw value is
// handed to the client once and never persisted.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Fingerprint is the one-way storage and lookup key for a refresh token.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}
