package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"netpanel/internal/database"
	"netpanel/internal/domain"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)

	// A single connection keeps the in-memory database shared across
	// concurrent transactions.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        "jane@x.com",
		FullName:     "Jane Doe",
		PasswordHash: "hash",
		Salt:         "salt",
		Role:         domain.RoleUser,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func newRecord(userID int64, fingerprint string) *domain.RefreshToken {
	return &domain.RefreshToken{
		UserID:      userID,
		Fingerprint: fingerprint,
		Device:      "test-agent",
		IP:          "127.0.0.1",
		ExpiresAt:   time.Now().UTC().Add(30 * 24 * time.Hour),
	}
}

func TestRefreshTokenRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-1")))

	got, err := repo.GetByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.False(t, got.Revoked)

	_, err = repo.GetByFingerprint(ctx, "fp-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRefreshTokenRepository_RotateIsSingleUse(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-old")))

	won, err := repo.Rotate(ctx, "fp-old", newRecord(user.ID, "fp-new"))
	require.NoError(t, err)
	assert.True(t, won)

	// Presenting the same fingerprint again loses.
	won, err = repo.Rotate(ctx, "fp-old", newRecord(user.ID, "fp-new-2"))
	require.NoError(t, err)
	assert.False(t, won)

	old, err := repo.GetByFingerprint(ctx, "fp-old")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	fresh, err := repo.GetByFingerprint(ctx, "fp-new")
	require.NoError(t, err)
	assert.False(t, fresh.Revoked)

	_, err = repo.GetByFingerprint(ctx, "fp-new-2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "the losing replacement must not be inserted")
}

func TestRefreshTokenRepository_ConcurrentRotateHasOneWinner(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-contended")))

	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			won, err := repo.Rotate(ctx, "fp-contended", newRecord(user.ID, fmt.Sprintf("fp-next-%d", i)))
			assert.NoError(t, err)
			wins <- won
		}(i)
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent rotation may win")
}

func TestRefreshTokenRepository_RevokeByFingerprint(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-1")))
	require.NoError(t, repo.RevokeByFingerprint(ctx, "fp-1"))

	got, err := repo.GetByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	// Revoking an unknown fingerprint is not an error.
	assert.NoError(t, repo.RevokeByFingerprint(ctx, "fp-missing"))
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-1")))
	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-2")))

	require.NoError(t, repo.RevokeAllForUser(ctx, user.ID))

	for _, fp := range []string{"fp-1", "fp-2"} {
		got, err := repo.GetByFingerprint(ctx, fp)
		require.NoError(t, err)
		assert.True(t, got.Revoked)
	}
}

func TestRefreshTokenRepository_DeleteStale(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	// Live record, revoked record, record expired beyond the grace period,
	// and a record expired but still inside the grace period.
	require.NoError(t, repo.Create(ctx, newRecord(user.ID, "fp-live")))

	revoked := newRecord(user.ID, "fp-revoked")
	revoked.Revoked = true
	require.NoError(t, repo.Create(ctx, revoked))

	longExpired := newRecord(user.ID, "fp-long-expired")
	longExpired.ExpiresAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, longExpired))

	justExpired := newRecord(user.ID, "fp-just-expired")
	justExpired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, justExpired))

	removed, err := repo.DeleteStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = repo.GetByFingerprint(ctx, "fp-live")
	assert.NoError(t, err)
	_, err = repo.GetByFingerprint(ctx, "fp-just-expired")
	assert.NoError(t, err)
	_, err = repo.GetByFingerprint(ctx, "fp-revoked")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetByFingerprint(ctx, "fp-long-expired")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRefreshTokenRepository_DeleteStaleForUser(t *testing.T) {
	db := setupDB(t)
	user := createUser(t, db)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()

	other := &domain.User{Email: "other@x.com", FullName: "Other", PasswordHash: "h", Salt: "s", Role: domain.RoleUser}
	require.NoError(t, NewUserRepository(db).Create(ctx, other))

	revoked := newRecord(user.ID, "fp-mine-revoked")
	revoked.Revoked = true
	require.NoError(t, repo.Create(ctx, revoked))

	otherRevoked := newRecord(other.ID, "fp-theirs-revoked")
	otherRevoked.Revoked = true
	require.NoError(t, repo.Create(ctx, otherRevoked))

	require.NoError(t, repo.DeleteStaleForUser(ctx, user.ID, 24*time.Hour))

	_, err := repo.GetByFingerprint(ctx, "fp-mine-revoked")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetByFingerprint(ctx, "fp-theirs-revoked")
	assert.NoError(t, err, "other users' records are untouched")
}
