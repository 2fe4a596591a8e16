package service

import (
	"context"
	"strings"
	"time"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/metrics"
	"github.com/sci-com/scicom-api/internal/repository/ports"
	"github.com/sci-com/scicom-api/internal/util"
)

const tokenSecretLength = 24

// TokenService issues and checks single-use secrets scoped to a subject and
// a purpose. A zero TTL for a purpose means its tokens never expire.
type TokenService struct {
	tokens ports.TokenRepository
	ttls   map[domain.TokenPurpose]time.Duration
	now    func() time.Time
	secret func(n int) (string, error)
}

func NewTokenService(tokens ports.TokenRepository, ttls map[domain.TokenPurpose]time.Duration) *TokenService {
	copied := make(map[domain.TokenPurpose]time.Duration, len(ttls))
	for purpose, ttl := range ttls {
		copied[purpose] = ttl
	}
	return &TokenService{
		tokens: tokens,
		ttls:   copied,
		now:    time.Now,
		secret: util.GenerateSecret,
	}
}

// Issue stores a fresh secret for subject and purpose, replacing any previous
// one, and returns it.
func (s *TokenService) Issue(ctx context.Context, subject string, purpose domain.TokenPurpose) (string, error) {
	subject = normalizeSubject(subject)
	if subject == "" || !purpose.Valid() {
		return "", ErrValidation
	}

	secret, err := s.secret(tokenSecretLength)
	if err != nil {
		metrics.RecordTokenIssue(string(purpose), false)
		return "", err
	}

	now := s.now().UTC()
	token := domain.Token{
		Subject:   subject,
		Purpose:   purpose,
		Secret:    secret,
		CreatedAt: now,
	}
	if ttl := s.ttls[purpose]; ttl > 0 {
		expires := now.Add(ttl)
		token.ExpiresAt = &expires
	}

	if err := s.tokens.Upsert(ctx, token); err != nil {
		metrics.RecordTokenIssue(string(purpose), false)
		return "", err
	}
	metrics.RecordTokenIssue(string(purpose), true)
	return secret, nil
}

// Peek reports whether a live token matches without consuming it.
func (s *TokenService) Peek(ctx context.Context, subject string, purpose domain.TokenPurpose, secret string) (bool, error) {
	match := domain.TokenMatch{Subject: normalizeSubject(subject), Purpose: purpose, Secret: secret}
	if !match.Complete() {
		return false, nil
	}
	ok, err := s.tokens.Exists(ctx, match)
	if err != nil {
		return false, err
	}
	metrics.RecordTokenMatch("peek", string(purpose), ok)
	return ok, nil
}

// Consume deletes the token when subject, purpose and secret all match. A
// mismatch leaves the stored token untouched.
func (s *TokenService) Consume(ctx context.Context, subject string, purpose domain.TokenPurpose, secret string) (bool, error) {
	match := domain.TokenMatch{Subject: normalizeSubject(subject), Purpose: purpose, Secret: secret}
	if !match.Complete() {
		return false, nil
	}
	ok, err := s.tokens.Consume(ctx, match)
	if err != nil {
		return false, err
	}
	metrics.RecordTokenMatch("consume", string(purpose), ok)
	return ok, nil
}

// Revoke drops every token issued to subject.
func (s *TokenService) Revoke(ctx context.Context, subject string) error {
	subject = normalizeSubject(subject)
	if subject == "" {
		return nil
	}
	_, err := s.tokens.DeleteSubject(ctx, subject)
	return err
}

func normalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
