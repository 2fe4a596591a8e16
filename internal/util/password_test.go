package util

import (
	"errors"
	"testing"
)

func TestDeriveAndVerifyPassword(t *testing.T) {
	hash, salt, err := DerivePassword("s3cret-pass")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatalf("expected hash and salt to be populated")
	}
	if !VerifyPassword("s3cret-pass", salt, hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-pass", salt, hash) {
		t.Fatalf("expected password verification to fail for wrong password")
	}
}

func TestHashPasswordEmptyInput(t *testing.T) {
	if _, err := HashPassword("", []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error when password empty")
	}
	if _, err := HashPassword("secret", nil); err == nil {
		t.Fatalf("expected error when salt empty")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"short1":           false,
		"onlylettershere":  false,
		"1234567890123":    false,
		"letters4andDigit": true,
		"grüße12345":       true,
	}
	for password, ok := range cases {
		err := ValidatePassword(password, 10)
		if ok && err != nil {
			t.Fatalf("expected %q to pass, got %v", password, err)
		}
		if !ok {
			if err == nil {
				t.Fatalf("expected %q to be rejected", password)
			}
			if !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		}
	}
}
