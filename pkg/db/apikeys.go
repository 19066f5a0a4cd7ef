package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

const selectAPIKeySQL = `
SELECT id, key, name, network_id, is_enabled, last_used, expires_at, created_at, updated_at
FROM api_keys`

// GetAPIKeyBySecret resolves an API key row from its secret value.
func (db *DB) GetAPIKeyBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	row := db.Pool.QueryRow(ctx, selectAPIKeySQL+` WHERE key = $1`, secret)

	key, err := scanAPIKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}

		return nil, fmt.Errorf("%w: api key by secret: %w", ErrFailedToQuery, err)
	}

	return key, nil
}

// ListAPIKeysByNetwork returns the keys scoped to one network.
func (db *DB) ListAPIKeysByNetwork(ctx context.Context, networkID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := db.Pool.Query(ctx, selectAPIKeySQL+` WHERE network_id = $1 ORDER BY created_at, id`, networkID)
	if err != nil {
		return nil, fmt.Errorf("%w: list api keys: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var keys []*models.APIKey

	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: api key: %w", ErrFailedToScan, err)
		}

		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate api keys: %w", ErrFailedToQuery, err)
	}

	return keys, nil
}

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey

	err := row.Scan(
		&key.ID,
		&key.Key,
		&key.Name,
		&key.NetworkID,
		&key.IsEnabled,
		&key.LastUsed,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &key, nil
}
