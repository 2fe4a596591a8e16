package ports

import (
	"context"
	"time"

	"github.com/sci-com/scicom-api/internal/domain"
)

// TokenRepository stores at most one token per (subject, purpose). Expired
// tokens must never match.
type TokenRepository interface {
	// Upsert replaces any token stored for the same subject and purpose.
	Upsert(ctx context.Context, token domain.Token) error
	Exists(ctx context.Context, match domain.TokenMatch) (bool, error)
	// Consume deletes the token only when all three fields match.
	Consume(ctx context.Context, match domain.TokenMatch) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	// DeleteSubject drops every token issued to subject, whatever its purpose.
	DeleteSubject(ctx context.Context, subject string) (int64, error)
}
