package domain

import "time"

// RefreshToken stores one session per device.
//
// Security notes:
// - The raw opaque token is never persisted, only its SHA-256 fingerprint,
//   so a database compromise cannot be used to forge sessions.
// - On refresh the token is rotated: the matched record is revoked and a
//   replacement record inserted (single-use policy).
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	Fingerprint string `json:"-" gorm:"size:44;uniqueIndex;not null"`

	Device string `json:"device"`
	IP     string `json:"ip"`

	Revoked   bool      `json:"revoked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
