package db

import (
	"context"
	"fmt"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

// ListDiscoveryRuns returns all discovery runs ordered by creation time.
// Run payloads stay opaque JSON; the server runtime owns their shapes.
func (db *DB) ListDiscoveryRuns(ctx context.Context) ([]*models.DiscoveryRun, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, network_id, daemon_id, name, run_type, discovery_type, created_at, updated_at
		FROM discovery_runs
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list discovery runs: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var runs []*models.DiscoveryRun

	for rows.Next() {
		var run models.DiscoveryRun

		err := rows.Scan(
			&run.ID,
			&run.NetworkID,
			&run.DaemonID,
			&run.Name,
			&run.RunType,
			&run.DiscoveryType,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: discovery run: %w", ErrFailedToScan, err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate discovery runs: %w", ErrFailedToQuery, err)
	}

	return runs, nil
}
