package entity

import (
	"time"
)

// AuthTokenID is the fixed primary key of the singleton credential row.
const AuthTokenID = 1

// AuthToken holds the external-calendar OAuth credentials. Exactly zero or
// one row exists; every refresh replaces the row wholesale.
type AuthToken struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuthToken) TableName() string {
	return "auth_tokens"
}

// IsExpired reports whether the access token is expired at now, with a
// safety skew so a token about to lapse mid-call counts as expired.
func (t *AuthToken) IsExpired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(t.ExpiresAt)
}
