package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Resanso/aquaseer-api/internal/accounts"
)

func newTestService(opts ...Option) *Service {
	base := []Option{WithHashCost(bcrypt.MinCost)}
	return NewService(accounts.NewMemoryStore(), append(base, opts...)...)
}

func TestSignUpThenSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	up, err := svc.SignUp(ctx, "Farmer@Example.com", "secret1", "Nguyen")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if up.Token == "" || up.User.DisplayName != "Nguyen" || up.User.Email != "farmer@example.com" {
		t.Fatalf("unexpected session %+v", up)
	}
	if up.User.PasswordHash == "secret1" {
		t.Fatalf("password stored in clear")
	}

	in, err := svc.SignIn(ctx, "farmer@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if in.Token == up.Token {
		t.Fatalf("expected a fresh session token")
	}
	if got := svc.ActiveSessions(); got != 2 {
		t.Fatalf("active sessions = %d, want 2", got)
	}

	user, err := svc.CurrentUser(ctx, in.Token)
	if err != nil || user.Email != "farmer@example.com" {
		t.Fatalf("current user: %+v, %v", user, err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cases := []struct {
		email, password, name string
		want                  error
	}{
		{"not-an-email", "secret1", "A", ErrInvalidEmail},
		{"a@localhost", "secret1", "A", ErrInvalidEmail},
		{"a@b.co", "12345", "A", ErrWeakPassword},
		{"a@b.co", strings.Repeat("x", 73), "A", ErrPasswordTooLong},
		{"a@b.co", "secret1", "  ", ErrMissingDisplayName},
	}
	for _, tc := range cases {
		_, err := svc.SignUp(ctx, tc.email, tc.password, tc.name)
		if !errors.Is(err, tc.want) {
			t.Fatalf("SignUp(%q, %q, %q) = %v, want %v", tc.email, tc.password, tc.name, err, tc.want)
		}
	}

	if _, err := svc.SignUp(ctx, "a@b.co", "secret1", "A"); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if _, err := svc.SignUp(ctx, "A@B.CO", "secret2", "B"); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "a@b.co", "secret1", "A"); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if _, err := svc.SignIn(ctx, "a@b.co", "wrong-password"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "ghost@b.co", "secret1"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for unknown user, got %v", err)
	}
	var aerr *Error
	_, err := svc.SignIn(ctx, "a@b.co", "nope")
	if !errors.As(err, &aerr) || aerr.Code != CodeInvalidCredential {
		t.Fatalf("expected auth error code, got %v", err)
	}
}

func TestSignOutEndsSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	sess, err := svc.SignUp(ctx, "a@b.co", "secret1", "A")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if _, err := svc.CurrentUser(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.SignOut(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second sign out should fail, got %v", err)
	}
	if svc.ActiveSessions() != 0 {
		t.Fatalf("expected no active sessions")
	}
}

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(WithSessionTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	sess, err := svc.SignUp(ctx, "a@b.co", "secret1", "A")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, err := svc.CurrentUser(ctx, sess.Token); err != nil {
		t.Fatalf("session expired early: %v", err)
	}

	now = now.Add(time.Minute)
	if svc.ActiveSessions() != 0 {
		t.Fatalf("expired session still counted")
	}
	if _, err := svc.CurrentUser(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after expiry, got %v", err)
	}
}
