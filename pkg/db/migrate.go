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
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pimenovoleg/network-topology/pkg/logger"
)

const migrationsTable = "schema_migrations"

// MigrationFunc is the forward action of one migration unit. It runs inside
// the unit's transaction; any error rolls the whole unit back.
type MigrationFunc func(ctx context.Context, tx pgx.Tx) error

// Migration is one unit of the ordered, append-only registry. Versions are
// assigned once and never reused.
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
}

// RunMigrations applies every pending unit of the registry in ascending
// version order, one transaction per unit. Rerunning against a fully
// migrated store is a no-op.
func (db *DB) RunMigrations(ctx context.Context) error {
	return runMigrations(ctx, db.Pool, migrations, db.logger)
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, registry []Migration, log logger.Logger) error {
	if err := validateRegistry(registry); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     INTEGER PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("migrations: create tracking table: %w", err)
	}

	current, err := appliedVersion(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range registry {
		if m.Version <= current {
			continue
		}

		// Checked precondition, not deployment discipline: a unit may only
		// follow the highest applied version directly.
		if m.Version != current+1 {
			return fmt.Errorf("%w: version %d cannot follow %d", ErrMigrationOrder, m.Version, current)
		}

		if err := applyMigration(ctx, pool, m, log); err != nil {
			return err
		}

		current = m.Version
	}

	log.Info().Int("version", current).Msg("store is up to date")

	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m Migration, log logger.Logger) error {
	log.Info().
		Int("version", m.Version).
		Str("description", m.Description).
		Msg("applying migration")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := m.Up(ctx, tx); err != nil {
		if isIntegrityViolation(err) {
			return fmt.Errorf("%w: migration %d: %w", ErrMigrationIntegrity, m.Version, err)
		}

		return fmt.Errorf("%w: migration %d: %w", ErrMigrationFailed, m.Version, err)
	}

	// The marker commits atomically with the unit's own changes.
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrationsTable), m.Version); err != nil {
		return fmt.Errorf("migration %d: record version: %w", m.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}

	return nil
}

// validateRegistry rejects a registry whose versions are not contiguous from
// 1. This runs before any transaction is opened.
func validateRegistry(registry []Migration) error {
	for i, m := range registry {
		if m.Version != i+1 {
			return fmt.Errorf("%w: registry position %d holds version %d", ErrMigrationOrder, i, m.Version)
		}

		if m.Up == nil {
			return fmt.Errorf("%w: version %d has no forward action", ErrMigrationFailed, m.Version)
		}
	}

	return nil
}

// appliedVersion returns the highest applied version after verifying the
// applied set is a gapless prefix of the version sequence.
func appliedVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf(`SELECT version FROM %s ORDER BY version`, migrationsTable))
	if err != nil {
		return 0, fmt.Errorf("migrations: list applied versions: %w", err)
	}
	defer rows.Close()

	var versions []int

	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("migrations: scan applied version: %w", err)
		}

		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("migrations: iterate applied versions: %w", err)
	}

	if err := checkAppliedPrefix(versions); err != nil {
		return 0, err
	}

	if len(versions) == 0 {
		return 0, nil
	}

	return versions[len(versions)-1], nil
}

// checkAppliedPrefix verifies an ascending applied-version list is exactly
// 1..N. A gap means some earlier run skipped a unit and the store cannot be
// trusted to hold that unit's invariants.
func checkAppliedPrefix(versions []int) error {
	for i, v := range versions {
		if v != i+1 {
			return fmt.Errorf("%w: applied versions have a gap at %d", ErrMigrationOrder, i+1)
		}
	}

	return nil
}

// columnExists reports whether table.column exists in the current schema.
// Data steps use it to tolerate re-entry after a structural step already ran.
func columnExists(ctx context.Context, tx pgx.Tx, table, column string) (bool, error) {
	var found bool

	err := tx.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
	)`, table, column).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: column %s.%s: %w", ErrFailedToQuery, table, column, err)
	}

	return found, nil
}

// tableExists reports whether the table exists in the current schema.
func tableExists(ctx context.Context, tx pgx.Tx, table string) (bool, error) {
	var found bool

	err := tx.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`, table).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: table %s: %w", ErrFailedToQuery, table, err)
	}

	return found, nil
}
