/*
 * Copyright 2025 Oleg Pimenov.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pimenovoleg/network-topology/pkg/models"
)

// ReshapeOptions controls the discovery metadata rewrite.
type ReshapeOptions struct {
	// PreserveSubnetIDs keeps the Network variant's subnet associations.
	// The historical rewrite reset them to null; that loss is not
	// recoverable afterwards, so the reset stays opt-out rather than
	// being hardcoded.
	PreserveSubnetIDs bool
}

func defaultReshapeOptions() ReshapeOptions {
	return ReshapeOptions{}
}

// reshapeTables are the entity tables carrying a source.metadata list.
var reshapeTables = []string{"services", "hosts", "subnets", "groups"}

// reshapeDiscoveryMetadata rewrites every legacy-tagged discovery record
// across all carrier tables into the current tagged shape. Records already
// in the current shape, and records matching no known shape, pass through
// byte-for-byte.
func reshapeDiscoveryMetadata(ctx context.Context, tx pgx.Tx, opts ReshapeOptions) error {
	for _, table := range reshapeTables {
		if err := reshapeTable(ctx, tx, table, opts); err != nil {
			return fmt.Errorf("reshape %s: %w", table, err)
		}
	}

	return nil
}

func reshapeTable(ctx context.Context, tx pgx.Tx, table string, opts ReshapeOptions) error {
	// Historical installs may predate some carrier tables.
	exists, err := tableExists(ctx, tx, table)
	if err != nil {
		return err
	}

	if !exists {
		return nil
	}

	// Only rows with at least one legacy-tagged record are candidates, so a
	// second pass over migrated data selects nothing.
	query := fmt.Sprintf(`
		SELECT id, source
		FROM %s
		WHERE jsonb_typeof(source->'metadata') = 'array'
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(source->'metadata') AS record
			WHERE record ? 'discovery_type'
		  )`, table)

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("select candidates: %w", err)
	}

	var (
		ids     []uuid.UUID
		sources [][]byte
	)

	for rows.Next() {
		var (
			id     uuid.UUID
			source []byte
		)

		if err := rows.Scan(&id, &source); err != nil {
			rows.Close()
			return fmt.Errorf("scan candidate: %w", err)
		}

		ids = append(ids, id)
		sources = append(sources, source)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate candidates: %w", err)
	}

	var (
		updateIDs     []uuid.UUID
		updateSources []string
	)

	for i, source := range sources {
		reshaped, changed, err := reshapeSource(source, opts)
		if err != nil {
			return fmt.Errorf("row %s: %w", ids[i], err)
		}

		if !changed {
			continue
		}

		updateIDs = append(updateIDs, ids[i])
		updateSources = append(updateSources, string(reshaped))
	}

	if len(updateIDs) == 0 {
		return nil
	}

	// One bulk write per table; it commits with the unit's transaction.
	update := fmt.Sprintf(`
		UPDATE %s AS t
		SET source = v.source, updated_at = now()
		FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::text[])::jsonb AS source) AS v
		WHERE t.id = v.id`, table)

	if _, err := tx.Exec(ctx, update, updateIDs, updateSources); err != nil {
		return fmt.Errorf("bulk update: %w", err)
	}

	return nil
}

// reshapeSource rewrites the metadata list inside one source document.
// Envelope fields other than metadata are preserved. A document whose
// metadata fails to decode is left alone; malformed embedded records are
// never fatal.
func reshapeSource(raw []byte, opts ReshapeOptions) ([]byte, bool, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw, false, nil
	}

	meta, ok := envelope["metadata"]
	if !ok {
		return raw, false, nil
	}

	var records []models.DiscoveryRecord
	if err := json.Unmarshal(meta, &records); err != nil {
		return raw, false, nil
	}

	changed := false

	for i := range records {
		if !records[i].Legacy {
			continue
		}

		changed = true

		if records[i].Kind == models.DiscoveryKindNetwork && !opts.PreserveSubnetIDs {
			records[i].SubnetIDs = nil
		}
	}

	if !changed {
		return raw, false, nil
	}

	newMeta, err := json.Marshal(records)
	if err != nil {
		return nil, false, fmt.Errorf("encode metadata: %w", err)
	}

	envelope["metadata"] = newMeta

	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, false, fmt.Errorf("encode source: %w", err)
	}

	return out, true, nil
}
