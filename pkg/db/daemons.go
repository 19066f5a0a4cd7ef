package db

import (
	"context"
	"fmt"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

// ListDaemons returns all registered daemons.
func (db *DB) ListDaemons(ctx context.Context) ([]*models.Daemon, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, network_id, host_id, ip, port, capabilities, last_seen, created_at, updated_at
		FROM daemons
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list daemons: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var daemons []*models.Daemon

	for rows.Next() {
		var d models.Daemon

		err := rows.Scan(
			&d.ID,
			&d.NetworkID,
			&d.HostID,
			&d.IP,
			&d.Port,
			&d.Capabilities,
			&d.LastSeen,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: daemon: %w", ErrFailedToScan, err)
		}

		daemons = append(daemons, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate daemons: %w", ErrFailedToQuery, err)
	}

	return daemons, nil
}
