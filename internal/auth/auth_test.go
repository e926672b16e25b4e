package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc, err := NewService(Options{Username: "ops", PasswordHash: string(hash), Secret: "test-secret", TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.Login("ops", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn <= 0 || pair.ExpiresIn > 60 {
		t.Fatalf("unexpected expires_in %d", pair.ExpiresIn)
	}
	op, err := svc.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if op != "ops" {
		t.Fatalf("expected operator ops, got %q", op)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	cases := []struct{ user, pass string }{
		{"ops", "wrong"},
		{"admin", "s3cret"},
		{"", ""},
	}
	for _, tc := range cases {
		if _, err := svc.Login(tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login(%q, %q): expected ErrInvalidCredentials, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestVerifyRejectsForeignAndTamperedTokens(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.Login("ops", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other, err := NewTokenManager("another-secret")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	foreign, _, err := other.Generate("ops", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for _, token := range []string{foreign, tampered, "not-a-token", ""} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	svc.tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := svc.Login("ops", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.tokens.now = time.Now

	if _, err := svc.Verify(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestNewServiceRequiresConfiguration(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cases := map[string]Options{
		"no username":    {PasswordHash: string(hash), Secret: "x"},
		"plain password": {Username: "ops", PasswordHash: "s3cret", Secret: "x"},
		"no secret":      {Username: "ops", PasswordHash: string(hash)},
	}
	for name, opts := range cases {
		if _, err := NewService(opts); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
