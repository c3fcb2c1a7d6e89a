package models

import "time"

// Session is a server-side browser session. UserID is nil while anonymous.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	CSRFToken string    `gorm:"size:64;not null" json:"csrf_token"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) Authenticated() bool { return s != nil && s.UserID != nil }

func (s *Session) IsExpired(now time.Time) bool { return now.After(s.ExpiresAt) }
