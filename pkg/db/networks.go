package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

// ListNetworksByUser returns the networks owned by a user.
func (db *DB) ListNetworksByUser(ctx context.Context, userID uuid.UUID) ([]*models.Network, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, user_id, is_default, created_at, updated_at
		FROM networks
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list networks: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var networks []*models.Network

	for rows.Next() {
		var n models.Network

		if err := rows.Scan(&n.ID, &n.Name, &n.UserID, &n.IsDefault, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: network: %w", ErrFailedToScan, err)
		}

		networks = append(networks, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate networks: %w", ErrFailedToQuery, err)
	}

	return networks, nil
}
