package repository

import (
	"context"
	"time"

	"netpanel/internal/domain"

	"gorm.io/gorm"
)

// RefreshTokenRepository provides DB access for refresh-token records.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RefreshTokenRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Rotate revokes the presented record and inserts its replacement in one
// transaction. The revocation is a conditional update checked by rows
// affected, so of any concurrent callers presenting the same fingerprint at
// most one wins; the rest get won=false.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, fingerprint string, next *domain.RefreshToken) (won bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.RefreshToken{}).
			Where("fingerprint = ? AND revoked = ?", fingerprint, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		won = true
		return tx.Create(next).Error
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// RevokeByFingerprint flips revoked on a live record. Missing or already
// revoked records are not an error for logout purposes.
func (r *RefreshTokenRepository) RevokeByFingerprint(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("fingerprint = ? AND revoked = ?", fingerprint, false).
		Update("revoked", true).Error
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// DeleteStaleForUser drops a user's revoked and long-expired rows. Called
// opportunistically at login; failures are not fatal.
func (r *RefreshTokenRepository) DeleteStaleForUser(ctx context.Context, userID int64, grace time.Duration) error {
	cutoff := time.Now().UTC().Add(-grace)
	return r.db.WithContext(ctx).
		Where("user_id = ? AND (revoked = ? OR expires_at < ?)", userID, true, cutoff).
		Delete(&domain.RefreshToken{}).Error
}

// DeleteStale removes revoked rows and rows expired beyond the grace period.
// Storage hygiene only; validity is always decided per record.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-grace)
	tx := r.db.WithContext(ctx).
		Where("revoked = ? OR expires_at < ?", true, cutoff).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}
