package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

// consumeScript deletes KEYS[1] only while it still holds ARGV[1].
var consumeScript = goredis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// TokenStore keeps one key per (purpose, subject) and lets Redis expire it.
type TokenStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewTokenStore namespaces keys under prefix, which is terminated with ':'
// when it is not already.
func NewTokenStore(client *goredis.Client, prefix string) *TokenStore {
	if prefix == "" {
		prefix = "scicom:token:"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &TokenStore{client: client, prefix: prefix, now: time.Now}
}

func (s *TokenStore) key(subject string, purpose domain.TokenPurpose) string {
	return s.prefix + string(purpose) + ":" + subject
}

// ttlFor converts an absolute expiry into a SET expiration. ok is false when
// the token is already expired.
func ttlFor(expiresAt *time.Time, now time.Time) (ttl time.Duration, ok bool) {
	if expiresAt == nil {
		return 0, true
	}
	ttl = expiresAt.Sub(now)
	if ttl <= 0 {
		return 0, false
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl, true
}

func (s *TokenStore) Upsert(ctx context.Context, token domain.Token) error {
	key := s.key(token.Subject, token.Purpose)
	ttl, ok := ttlFor(token.ExpiresAt, s.now())
	if !ok {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis token: delete expired: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, key, token.Secret, ttl).Err(); err != nil {
		return fmt.Errorf("redis token: set: %w", err)
	}
	return nil
}

func (s *TokenStore) Exists(ctx context.Context, match domain.TokenMatch) (bool, error) {
	stored, err := s.client.Get(ctx, s.key(match.Subject, match.Purpose)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis token: get: %w", err)
	}
	return stored == match.Secret, nil
}

func (s *TokenStore) Consume(ctx context.Context, match domain.TokenMatch) (bool, error) {
	deleted, err := consumeScript.Run(ctx, s.client, []string{s.key(match.Subject, match.Purpose)}, match.Secret).Int64()
	if err != nil {
		return false, fmt.Errorf("redis token: consume: %w", err)
	}
	return deleted == 1, nil
}

// PurgeExpired is a no-op; Redis evicts expired keys itself.
func (s *TokenStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *TokenStore) DeleteSubject(ctx context.Context, subject string) (int64, error) {
	keys := []string{
		s.key(subject, domain.TokenPurposePasswordReset),
		s.key(subject, domain.TokenPurposeEmailVerification),
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis token: delete subject: %w", err)
	}
	return deleted, nil
}

var _ ports.TokenRepository = (*TokenStore)(nil)
