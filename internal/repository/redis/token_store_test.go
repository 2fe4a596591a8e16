package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sci-com/scicom-api/internal/domain"
)

func TestTTLFor(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if ttl, ok := ttlFor(nil, now); !ok || ttl != 0 {
		t.Fatalf("expected no expiry, got %s %v", ttl, ok)
	}

	later := now.Add(time.Hour)
	if ttl, ok := ttlFor(&later, now); !ok || ttl != time.Hour {
		t.Fatalf("expected one hour, got %s %v", ttl, ok)
	}

	earlier := now.Add(-time.Second)
	if _, ok := ttlFor(&earlier, now); ok {
		t.Fatalf("expected expired token to be rejected")
	}

	almost := now.Add(time.Microsecond)
	if ttl, ok := ttlFor(&almost, now); !ok || ttl != time.Millisecond {
		t.Fatalf("expected ttl rounded up to 1ms, got %s", ttl)
	}
}

func TestTokenKeyIsScopedByPurpose(t *testing.T) {
	store := NewTokenStore(nil, "")
	reset := store.key("a@b.com", domain.TokenPurposePasswordReset)
	verify := store.key("a@b.com", domain.TokenPurposeEmailVerification)
	if reset == verify {
		t.Fatalf("expected distinct keys per purpose")
	}
	if reset != "scicom:token:PASSWORD_RESET:a@b.com" {
		t.Fatalf("unexpected key %s", reset)
	}
}

func TestTokenKeyPrefixGetsSeparator(t *testing.T) {
	store := NewTokenStore(nil, "scicom:token")
	if got := store.key("a@b.com", domain.TokenPurposePasswordReset); got != "scicom:token:PASSWORD_RESET:a@b.com" {
		t.Fatalf("unexpected key %s", got)
	}
}

func newMiniredisStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := NewClient(srv.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client, ""), srv
}

func TestTokenStoreUpsertReplacesSecret(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for _, secret := range []string{"s1", "s2"} {
		err := store.Upsert(ctx, domain.Token{Subject: "a@b.com", Purpose: domain.TokenPurposePasswordReset, Secret: secret, ExpiresAt: &expires})
		if err != nil {
			t.Fatalf("upsert %s: %v", secret, err)
		}
	}

	keys := srv.Keys()
	if len(keys) != 1 || keys[0] != "scicom:token:PASSWORD_RESET:a@b.com" {
		t.Fatalf("expected a single key, got %v", keys)
	}
	if got, _ := srv.Get(keys[0]); got != "s2" {
		t.Fatalf("expected latest secret, got %q", got)
	}
	if ttl := srv.TTL(keys[0]); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within an hour, got %s", ttl)
	}
}

func TestTokenStoreConsume(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()
	token := domain.Token{Subject: "a@b.com", Purpose: domain.TokenPurposeEmailVerification, Secret: "right"}
	if err := store.Upsert(ctx, token); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	key := store.key(token.Subject, token.Purpose)

	wrong := domain.TokenMatch{Subject: token.Subject, Purpose: token.Purpose, Secret: "wrong"}
	if ok, err := store.Consume(ctx, wrong); err != nil || ok {
		t.Fatalf("expected wrong secret to be rejected, got %v %v", ok, err)
	}
	if !srv.Exists(key) {
		t.Fatal("expected key to survive a failed consume")
	}

	right := domain.TokenMatch{Subject: token.Subject, Purpose: token.Purpose, Secret: "right"}
	if ok, err := store.Exists(ctx, right); err != nil || !ok {
		t.Fatalf("expected token to match, got %v %v", ok, err)
	}
	if ok, err := store.Consume(ctx, right); err != nil || !ok {
		t.Fatalf("expected consume to succeed, got %v %v", ok, err)
	}
	if srv.Exists(key) {
		t.Fatal("expected key to be deleted after consume")
	}
	if ok, err := store.Consume(ctx, right); err != nil || ok {
		t.Fatalf("expected second consume to fail, got %v %v", ok, err)
	}
	if ok, err := store.Exists(ctx, right); err != nil || ok {
		t.Fatalf("expected consumed token to be gone, got %v %v", ok, err)
	}
}

func TestTokenStoreOtherPurposeDoesNotMatch(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()
	if err := store.Upsert(ctx, domain.Token{Subject: "a@b.com", Purpose: domain.TokenPurposePasswordReset, Secret: "s"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	match := domain.TokenMatch{Subject: "a@b.com", Purpose: domain.TokenPurposeEmailVerification, Secret: "s"}
	if ok, err := store.Consume(ctx, match); err != nil || ok {
		t.Fatalf("expected purpose mismatch to fail, got %v %v", ok, err)
	}
}

func TestTokenStoreUpsertExpiredDeletesKey(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()
	token := domain.Token{Subject: "a@b.com", Purpose: domain.TokenPurposePasswordReset, Secret: "s"}
	if err := store.Upsert(ctx, token); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	past := time.Now().Add(-time.Minute)
	token.ExpiresAt = &past
	if err := store.Upsert(ctx, token); err != nil {
		t.Fatalf("upsert expired: %v", err)
	}
	if keys := srv.Keys(); len(keys) != 0 {
		t.Fatalf("expected expired token to remove the key, got %v", keys)
	}
}

func TestTokenStoreExpiresWithTTL(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)
	token := domain.Token{Subject: "a@b.com", Purpose: domain.TokenPurposePasswordReset, Secret: "s", ExpiresAt: &expires}
	if err := store.Upsert(ctx, token); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	srv.FastForward(2 * time.Minute)
	match := domain.TokenMatch{Subject: token.Subject, Purpose: token.Purpose, Secret: "s"}
	if ok, err := store.Consume(ctx, match); err != nil || ok {
		t.Fatalf("expected expired token to be unusable, got %v %v", ok, err)
	}
}

func TestTokenStoreDeleteSubject(t *testing.T) {
	store, srv := newMiniredisStore(t)
	ctx := context.Background()
	for _, token := range []domain.Token{
		{Subject: "a@b.com", Purpose: domain.TokenPurposePasswordReset, Secret: "1"},
		{Subject: "a@b.com", Purpose: domain.TokenPurposeEmailVerification, Secret: "2"},
		{Subject: "c@d.com", Purpose: domain.TokenPurposePasswordReset, Secret: "3"},
	} {
		if err := store.Upsert(ctx, token); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	n, err := store.DeleteSubject(ctx, "a@b.com")
	if err != nil || n != 2 {
		t.Fatalf("expected two deleted keys, got %d %v", n, err)
	}
	if keys := srv.Keys(); len(keys) != 1 || keys[0] != "scicom:token:PASSWORD_RESET:c@d.com" {
		t.Fatalf("expected only the other subject to remain, got %v", keys)
	}
}
