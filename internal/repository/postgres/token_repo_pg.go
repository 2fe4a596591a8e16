package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Upsert(ctx context.Context, token domain.Token) error {
	const query = `
        INSERT INTO tokens (subject, purpose, secret, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (subject, purpose) DO UPDATE
        SET secret = EXCLUDED.secret,
            created_at = NOW(),
            expires_at = EXCLUDED.expires_at
    `
	_, err := conn(ctx, r.db).ExecContext(ctx, query, token.Subject, token.Purpose, token.Secret, token.ExpiresAt)
	return err
}

func (r *TokenRepository) Exists(ctx context.Context, match domain.TokenMatch) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM tokens
            WHERE subject = $1 AND purpose = $2 AND secret = $3
              AND (expires_at IS NULL OR expires_at > NOW())
        )
    `
	var found bool
	if err := conn(ctx, r.db).GetContext(ctx, &found, query, match.Subject, match.Purpose, match.Secret); err != nil {
		return false, err
	}
	return found, nil
}

func (r *TokenRepository) Consume(ctx context.Context, match domain.TokenMatch) (bool, error) {
	const query = `
        DELETE FROM tokens
        WHERE subject = $1 AND purpose = $2 AND secret = $3
          AND (expires_at IS NULL OR expires_at > NOW())
        RETURNING subject
    `
	var subject string
	err := conn(ctx, r.db).GetContext(ctx, &subject, query, match.Subject, match.Purpose, match.Secret)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *TokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TokenRepository) DeleteSubject(ctx context.Context, subject string) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tokens WHERE subject = $1`, subject)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ ports.TokenRepository = (*TokenRepository)(nil)
