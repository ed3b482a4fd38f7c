package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Dip11/medic-media-coding-test-backend/internal/domain"
	"github.com/Dip11/medic-media-coding-test-backend/internal/repository"
)

const userColumns = `id, email, password_hash, first_name, COALESCE(last_name, ''), last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user after checking email availability inside the same
// transaction. The unique index on users.email backs the check against
// concurrent registrations; either path surfaces ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const check = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
		var exists bool
		if err := tx.QueryRow(ctx, check, user.Email).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return repository.ErrDuplicateEmail
		}
		const insert = `INSERT INTO users (email, password_hash, first_name, last_name)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insert, user.Email, user.PasswordHash, user.FirstName, user.LastName).
			Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if uniqueViolation(err) {
				return repository.ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// UpdateLastLogin records a successful login timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}
