// Package store provides PostgreSQL data access for users, tasks,
// and sessions on top of a pgx connection pool.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist or is not
	// visible to the caller (ownership scoping).
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a unique email constraint
	// is violated on insert or update.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is an account row. PasswordHash never serializes.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	UserName     string     `json:"user_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	LastIP       *string    `json:"last_ip,omitempty"`
}

// Task is an owner-scoped task row.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Canonical task statuses. The column is free-form text; these are
// the values the API writes.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Session is a bearer-token session row. Tokens carry no structural
// uniqueness; reads take the newest matching row.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the
// given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// UserStore is the user persistence surface.
type UserStore interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id int64, params UpdateUserParams) (*User, error)
	Delete(ctx context.Context, id int64) error
	TouchLogin(ctx context.Context, id int64, ip string) error
}

// TaskStore is the task persistence surface. Every read and mutation
// is scoped to the owning user.
type TaskStore interface {
	Create(ctx context.Context, params CreateTaskParams) (*Task, error)
	GetOwned(ctx context.Context, id, ownerID int64) (*Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Task, error)
	Update(ctx context.Context, id, ownerID int64, params UpdateTaskParams) (*Task, error)
	Delete(ctx context.Context, id, ownerID int64) error
	SetCompletion(ctx context.Context, id, ownerID int64, completed bool) (*Task, error)
}

// SessionStore is the session persistence surface.
type SessionStore interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// isNoRows reports whether err is pgx's empty-result sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isUniqueViolation reports whether err is a 23505 unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
