package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmailRequired is returned when an insert lacks an email.
	ErrEmailRequired = errors.New("email is required")
	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound indicates a lookup failed to locate the requested user.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered dashboard account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateUserInput is used for inserting a new user row.
type CreateUserInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// Repository persists dashboard accounts in MySQL.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a Repository with the provided sql.DB pool.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the users table if it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		display_name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Ping checks MySQL connectivity using the provided context.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a user row and returns the stored record.
func (r *Repository) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return User{}, ErrEmailRequired
	}

	const stmt = `INSERT INTO users (email, display_name, password_hash) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt, email, strings.TrimSpace(input.DisplayName), input.PasswordHash)
	if err != nil {
		if isDuplicateEntry(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}

	const query = `SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindUserByEmail looks up a user by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicateEntry(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}
