package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type User struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	PasswordHash []byte         `db:"password_hash" json:"-"`
	PasswordSalt []byte         `db:"password_salt" json:"-"`
	IsPolitician bool           `db:"is_politician" json:"isPolitician"`
	Verified     bool           `db:"verified" json:"verified"`
	FirstName    *string        `db:"first_name" json:"firstName,omitempty"`
	LastName     *string        `db:"last_name" json:"lastName,omitempty"`
	Avatar       *string        `db:"avatar" json:"avatar,omitempty"`
	Phone        *string        `db:"phone" json:"phone,omitempty"`
	Website      *string        `db:"website" json:"website,omitempty"`
	LinkedIn     *string        `db:"linkedin" json:"linkedIn,omitempty"`
	City         *string        `db:"city" json:"city,omitempty"`
	State        *string        `db:"state" json:"state,omitempty"`
	Title        *string        `db:"title" json:"title,omitempty"`
	Major        pq.StringArray `db:"major" json:"major,omitempty"`
	University   *string        `db:"university" json:"university,omitempty"`
	CV           *string        `db:"cv" json:"CV,omitempty"`
	Position     *string        `db:"position" json:"position,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

func (u *User) IsStudent() bool {
	return !u.IsPolitician
}

// ProfileUpdate carries the optional profile fields a user may change. Nil
// pointers are left untouched.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Website    *string
	LinkedIn   *string
	City       *string
	State      *string
	Title      *string
	Position   *string
	Major      []string
	University *string
	Avatar     *string
	CV         *string
}
