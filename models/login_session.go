package models

import (
	"time"
)

// LoginSession holds one value of the per-browser login handshake
// (CSRF state or PKCE verifier), keyed by the session cookie.
type LoginSession struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;uniqueIndex:idx_session_key" json:"session_id"`
	Key       string    `gorm:"column:session_key;size:64;not null;uniqueIndex:idx_session_key" json:"key"`
	Value     string    `gorm:"size:512;not null" json:"value"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LoginSession) TableName() string {
	return "login_sessions"
}
