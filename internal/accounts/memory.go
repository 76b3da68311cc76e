package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps accounts in process memory. It backs the auth gateway
// when no MySQL database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// CreateUser stores a new user keyed by normalized email.
func (m *MemoryStore) CreateUser(_ context.Context, input CreateUserInput) (User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return User{}, ErrEmailRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[email]; exists {
		return User{}, ErrEmailExists
	}
	m.nextID++
	u := User{
		ID:           m.nextID,
		Email:        email,
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[email] = u
	return u, nil
}

// FindUserByEmail looks up a user by normalized email.
func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
