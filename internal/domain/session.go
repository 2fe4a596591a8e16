package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session ties an issued JWT to a user so it can be revoked before expiry.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Token     string    `db:"token" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	IsActive  bool      `db:"is_active" json:"isActive"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
