package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Users is the pgx-backed UserStore.
type Users struct {
	pool *pgxpool.Pool
}

// NewUsers creates a user store on the given pool.
func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

const userColumns = "id, name, user_name, email, password_hash, registered_at, last_login, last_ip"

// CreateUserParams holds the fields for a new account.
type CreateUserParams struct {
	Name         string
	UserName     string
	Email        string
	PasswordHash string
}

// Create inserts a new user and returns the stored row.
func (s *Users) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, user_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		params.Name, params.UserName, params.Email, params.PasswordHash)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetByID fetches a user by primary key.
func (s *Users) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (s *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// List returns all users ordered by id.
func (s *Users) List(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUserParams holds optional profile fields; nil means keep the
// stored value.
type UpdateUserParams struct {
	Name         *string
	UserName     *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether no field is set.
func (p UpdateUserParams) Empty() bool {
	return p.Name == nil && p.UserName == nil && p.Email == nil && p.PasswordHash == nil
}

// Update applies the set fields to the user and returns the updated
// row, or ErrNotFound when the id does not exist.
func (s *Users) Update(ctx context.Context, id int64, params UpdateUserParams) (*User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		addSet("name", *params.Name)
	}
	if params.UserName != nil {
		addSet("user_name", *params.UserName)
	}
	if params.Email != nil {
		addSet("email", *params.Email)
	}
	if params.PasswordHash != nil {
		addSet("password_hash", *params.PasswordHash)
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	user, err := scanUser(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete removes a user row.
func (s *Users) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLogin records a successful login time and source address.
func (s *Users) TouchLogin(ctx context.Context, id int64, ip string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login = now(), last_ip = $2 WHERE id = $1`, id, ip)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.UserName, &u.Email, &u.PasswordHash,
		&u.RegisteredAt, &u.LastLogin, &u.LastIP)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
