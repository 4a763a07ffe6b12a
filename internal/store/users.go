package store

import (
	"context"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

// CreateUserParams holds parameters for CreateUser.
type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const createUser = `
INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?)
RETURNING id, email, name, password_hash, role, is_active, created_at, updated_at
`

// CreateUser inserts a new active user.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email, arg.Name, arg.PasswordHash, arg.Role, arg.CreatedAt, arg.UpdatedAt)
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.User{}, ErrConflict
	}
	return u, err
}

const getUserByID = `
SELECT id, email, name, password_hash, role, is_active, created_at, updated_at
FROM users WHERE id = ?
`

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, mapRowErr(err)
}

const getUserByEmail = `
SELECT id, email, name, password_hash, role, is_active, created_at, updated_at
FROM users WHERE email = ?
`

// GetUserByEmail fetches a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, mapRowErr(err)
}

const updateUserPassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

// UpdateUserPassword replaces the stored hash, used for password changes
// and transparent rehashes on login.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, passwordHash, now, id)
	return err
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}
