package domain

import "time"

// TokenPurpose scopes a single-use secret to the flow that issued it.
type TokenPurpose string

const (
	TokenPurposePasswordReset     TokenPurpose = "PASSWORD_RESET"
	TokenPurposeEmailVerification TokenPurpose = "EMAIL_VERIFICATION"
)

func (p TokenPurpose) Valid() bool {
	return p == TokenPurposePasswordReset || p == TokenPurposeEmailVerification
}

// Token is the stored record. At most one exists per (Subject, Purpose).
type Token struct {
	Subject   string       `db:"subject" json:"subject"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	Secret    string       `db:"secret" json:"-"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	ExpiresAt *time.Time   `db:"expires_at" json:"expiresAt,omitempty"`
}

// Expired reports whether t is past its expiry at now. Tokens without an
// expiry never expire.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// TokenMatch is a candidate triple supplied by a caller. Any empty field makes
// the match fail.
type TokenMatch struct {
	Subject string
	Purpose TokenPurpose
	Secret  string
}

func (m TokenMatch) Complete() bool {
	return m.Subject != "" && m.Secret != "" && m.Purpose.Valid()
}
