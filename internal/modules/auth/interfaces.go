package auth

import (
	"context"
	"time"

	"netpanel/internal/domain"
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type RefreshTokenRepositoryInterface interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, fingerprint string, next *domain.RefreshToken) (bool, error)
	RevokeByFingerprint(ctx context.Context, fingerprint string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteStaleForUser(ctx context.Context, userID int64, grace time.Duration) error
	DeleteStale(ctx context.Context, grace time.Duration) (int64, error)
}
