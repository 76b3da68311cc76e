package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Resanso/aquaseer-api/internal/accounts"
)

const (
	defaultSessionTTL = 24 * time.Hour
	minPasswordLength = 6
	// bcrypt ignores input past this length and refuses to hash it.
	maxPasswordBytes  = 72
	sessionTTLEnvKey  = "AUTH_SESSION_TTL"
)

// Gateway signs dashboard users in and out.
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (accounts.User, error)
	ActiveSessions() int
}

// UserStore persists accounts. *accounts.Repository and *accounts.MemoryStore satisfy it.
type UserStore interface {
	CreateUser(ctx context.Context, input accounts.CreateUserInput) (accounts.User, error)
	FindUserByEmail(ctx context.Context, email string) (accounts.User, error)
}

// Session is an opaque signed-in token bound to a user.
type Session struct {
	Token     string        `json:"token"`
	User      accounts.User `json:"user"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Service implements Gateway with bcrypt password hashes and in-memory sessions.
type Service struct {
	store    UserStore
	ttl      time.Duration
	hashCost int
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// Option customizes Service creation.
type Option func(*Service)

// WithSessionTTL overrides how long sessions stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// WithClock replaces the wall clock used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a gateway over store.
func NewService(store UserStore, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		ttl:      defaultSessionTTL,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SessionTTLFromEnv reads AUTH_SESSION_TTL, falling back to 24h.
func SessionTTLFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv(sessionTTLEnvKey))
	if raw == "" {
		return defaultSessionTTL
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		log.Printf("invalid %s value %q, using default %s", sessionTTLEnvKey, raw, defaultSessionTTL)
		return defaultSessionTTL
	}
	return dur
}

// SignUp registers an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	email, err := validateEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return Session{}, ErrPasswordTooLong
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Session{}, ErrMissingDisplayName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Session{}, ErrPasswordTooLong
	}
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, accounts.CreateUserInput{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, accounts.ErrEmailExists) {
			return Session{}, ErrEmailInUse
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	log.Printf("auth: user registered email=%s", user.Email)
	return s.openSession(user), nil
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := validateEmail(email)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return Session{}, ErrInvalidCredential
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredential
	}

	return s.openSession(user), nil
}

// SignOut ends the session identified by token.
func (s *Service) SignOut(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, token)
	log.Printf("auth: user signed out email=%s", sess.User.Email)
	return nil
}

// CurrentUser resolves a token to its user.
func (s *Service) CurrentUser(_ context.Context, token string) (accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return accounts.User{}, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return accounts.User{}, ErrSessionNotFound
	}
	return sess.User, nil
}

// ActiveSessions counts unexpired sessions, pruning expired ones.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
	return len(s.sessions)
}

func (s *Service) openSession(user accounts.User) Session {
	sess := Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

func validateEmail(raw string) (string, error) {
	email := accounts.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}
