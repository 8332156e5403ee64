package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"netpanel/internal/domain"
	jwtsvc "netpanel/internal/pkg/jwt"
	"netpanel/internal/pkg/password"

	"gorm.io/gorm"
)

// loginCleanupGrace bounds the opportunistic per-user cleanup at login:
// revoked rows and rows expired for longer than this are dropped.
const loginCleanupGrace = 24 * time.Hour

type tokenIssuer interface {
	GenerateToken(userID int64, email, name, role string) (string, time.Time, error)
}

// Service contains all business logic for authentication and session
// lifecycle.
type Service struct {
	users            UserRepositoryInterface
	sessions         RefreshTokenRepositoryInterface
	tokens           tokenIssuer
	refreshTTL       time.Duration
	logoutAllDevices bool
	revokeAllOnReuse bool
}

type Options struct {
	RefreshTTL time.Duration
	// LogoutAllDevices revokes every session of the user at logout, not just
	// the one matching the presented cookie.
	LogoutAllDevices bool
	// RevokeAllOnReuse bulk-revokes a user's sessions when an already-rotated
	// refresh token is presented again. Policy choice, off by default.
	RevokeAllOnReuse bool
}

type LoginResult struct {
	User            *domain.User
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

func NewService(
	users UserRepositoryInterface,
	sessions RefreshTokenRepositoryInterface,
	tokens tokenIssuer,
	opts Options,
) *Service {
	return &Service{
		users:            users,
		sessions:         sessions,
		tokens:           tokens,
		refreshTTL:       opts.RefreshTTL,
		logoutAllDevices: opts.LogoutAllDevices,
		revokeAllOnReuse: opts.RevokeAllOnReuse,
	}
}

// Register creates a stored credential. The password policy and the
// confirmation check run before any hashing happens.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, salt, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role := domain.UserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}

	user := &domain.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	user.Salt = ""
	return user, nil
}

// Login verifies the credential and opens a new session. Unknown email and
// wrong password are deliberately indistinguishable.
func (s *Service) Login(ctx context.Context, req LoginRequest, device, ip string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash, user.Salt) {
		return nil, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, string(user.Role))
	if err != nil {
		return nil, err
	}

	refreshRaw, err := jwtsvc.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.sessions.Create(ctx, &domain.RefreshToken{
		UserID:      user.ID,
		Fingerprint: jwtsvc.Fingerprint(refreshRaw),
		Device:      device,
		IP:          ip,
		ExpiresAt:   now.Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteStaleForUser(ctx, user.ID, loginCleanupGrace); err != nil {
		log.Printf("auth: login cleanup for user %d failed: %v", user.ID, err)
	}

	user.PasswordHash = ""
	user.Salt = ""
	return &LoginResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshRaw,
	}, nil
}

// RefreshSession exchanges a presented raw refresh token for a new
// access+refresh pair, rotating the stored record. The rotation is
// single-use: of concurrent presenters of the same raw token exactly one
// wins; everyone else gets ErrInvalidRefreshToken.
func (s *Service) RefreshSession(ctx context.Context, refreshRaw, device, ip string) (*LoginResult, error) {
	fingerprint := jwtsvc.Fingerprint(refreshRaw)

	current, err := s.sessions.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	now := time.Now().UTC()
	if current.Revoked {
		// The token was already rotated once: someone is replaying it.
		log.Printf("auth: refresh token reuse detected for user %d", current.UserID)
		if s.revokeAllOnReuse {
			if err := s.sessions.RevokeAllForUser(ctx, current.UserID); err != nil {
				return nil, err
			}
		}
		return nil, ErrInvalidRefreshToken
	}
	if current.IsExpired(now) {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, current.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, string(user.Role))
	if err != nil {
		return nil, err
	}
	newRaw, err := jwtsvc.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	won, err := s.sessions.Rotate(ctx, fingerprint, &domain.RefreshToken{
		UserID:      user.ID,
		Fingerprint: jwtsvc.Fingerprint(newRaw),
		Device:      device,
		IP:          ip,
		ExpiresAt:   now.Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrInvalidRefreshToken
	}

	user.PasswordHash = ""
	user.Salt = ""
	return &LoginResult{
		User:            user,
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    newRaw,
	}, nil
}

// Logout revokes the session matching the presented cookie and, when
// configured, every other session of the user.
func (s *Service) Logout(ctx context.Context, userID int64, refreshRaw string) error {
	if refreshRaw != "" {
		if err := s.sessions.RevokeByFingerprint(ctx, jwtsvc.Fingerprint(refreshRaw)); err != nil {
			return err
		}
	}
	if s.logoutAllDevices {
		return s.sessions.RevokeAllForUser(ctx, userID)
	}
	return nil
}

// SweepStale removes revoked and long-expired refresh-token rows.
func (s *Service) SweepStale(ctx context.Context, grace time.Duration) (int64, error) {
	return s.sessions.DeleteStale(ctx, grace)
}
