package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

const selectUserSQL = `
SELECT id, email, name, password_hash, oidc_provider, oidc_subject, oidc_linked_at, created_at, updated_at
FROM users`

// GetUserByEmail looks a user up by address, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.Pool.QueryRow(ctx, selectUserSQL+` WHERE lower(email) = lower($1)`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("%w: user by email: %w", ErrFailedToQuery, err)
	}

	return user, nil
}

// ListUsers returns all users ordered by creation time.
func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := db.Pool.Query(ctx, selectUserSQL+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var users []*models.User

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: user: %w", ErrFailedToScan, err)
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate users: %w", ErrFailedToQuery, err)
	}

	return users, nil
}

// CountLegacyUsers reports how many users still lack any credential. After
// reconciliation this is at most one.
func (db *DB) CountLegacyUsers(ctx context.Context) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE password_hash IS NULL AND oidc_subject IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count legacy users: %w", ErrFailedToQuery, err)
	}

	return count, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.OIDCProvider,
		&user.OIDCSubject,
		&user.OIDCLinkedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
