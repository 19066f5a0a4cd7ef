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
)

// migrations is the append-only registry. New units go at the end with the
// next version; applied units are never edited.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up:          migrateInitialSchema,
	},
	{
		Version:     2,
		Description: "user auth columns and OIDC identity",
		Up:          migrateAuthSurface,
	},
	{
		Version:     3,
		Description: "merge legacy users into a single seed",
		Up:          mergeLegacyUsers,
	},
	{
		Version:     4,
		Description: "backfill unique user emails",
		Up:          backfillUserEmails,
	},
	{
		Version:     5,
		Description: "externalize daemon api keys, add daemon updated_at",
		Up:          externalizeDaemonAPIKeys,
	},
	{
		Version:     6,
		Description: "rewrite legacy discovery metadata records",
		Up: func(ctx context.Context, tx pgx.Tx) error {
			return reshapeDiscoveryMetadata(ctx, tx, defaultReshapeOptions())
		},
	},
}

var initialSchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS networks (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_default  BOOLEAN NOT NULL DEFAULT false,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_networks_user_id ON networks (user_id)`,
	`CREATE TABLE IF NOT EXISTS hosts (
		id          UUID PRIMARY KEY,
		network_id  UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		name        TEXT NOT NULL DEFAULT '',
		source      JSONB NOT NULL DEFAULT '{"type": "Unknown"}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hosts_network_id ON hosts (network_id)`,
	`CREATE TABLE IF NOT EXISTS subnets (
		id          UUID PRIMARY KEY,
		network_id  UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		name        TEXT NOT NULL DEFAULT '',
		cidr        TEXT NOT NULL DEFAULT '',
		source      JSONB NOT NULL DEFAULT '{"type": "Unknown"}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subnets_network_id ON subnets (network_id)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id          UUID PRIMARY KEY,
		network_id  UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		name        TEXT NOT NULL DEFAULT '',
		source      JSONB NOT NULL DEFAULT '{"type": "Unknown"}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_groups_network_id ON groups (network_id)`,
	`CREATE TABLE IF NOT EXISTS services (
		id          UUID PRIMARY KEY,
		network_id  UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		host_id     UUID REFERENCES hosts(id) ON DELETE CASCADE,
		name        TEXT NOT NULL DEFAULT '',
		source      JSONB NOT NULL DEFAULT '{"type": "Unknown"}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_services_network_id ON services (network_id)`,
	`CREATE TABLE IF NOT EXISTS daemons (
		id            UUID PRIMARY KEY,
		network_id    UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		host_id       UUID NOT NULL,
		ip            TEXT NOT NULL,
		port          INTEGER NOT NULL,
		api_key       TEXT,
		capabilities  JSONB NOT NULL DEFAULT '{}',
		last_seen     TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daemons_network_id ON daemons (network_id)`,
	`CREATE TABLE IF NOT EXISTS discovery_runs (
		id              UUID PRIMARY KEY,
		network_id      UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		daemon_id       UUID NOT NULL REFERENCES daemons(id) ON DELETE CASCADE,
		name            TEXT NOT NULL DEFAULT '',
		run_type        JSONB NOT NULL,
		discovery_type  JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_discovery_runs_network_id ON discovery_runs (network_id)`,
}

func migrateInitialSchema(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx, initialSchemaStatements)
}

var authSurfaceStatements = []string{
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS password_hash TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS oidc_provider TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS oidc_subject TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS oidc_linked_at TIMESTAMPTZ`,
	// Partial constraint: users without an OIDC link never collide on the
	// pair's absence.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_oidc_identity
		ON users (oidc_provider, oidc_subject)
		WHERE oidc_provider IS NOT NULL AND oidc_subject IS NOT NULL`,
}

func migrateAuthSurface(ctx context.Context, tx pgx.Tx) error {
	return execAll(ctx, tx, authSurfaceStatements)
}

var apiKeySchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id          UUID PRIMARY KEY,
		key         TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		network_id  UUID NOT NULL REFERENCES networks(id) ON DELETE CASCADE,
		is_enabled  BOOLEAN NOT NULL DEFAULT true,
		last_used   TIMESTAMPTZ,
		expires_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_network_id ON api_keys (network_id)`,
}

// externalizeDaemonAPIKeys moves the embedded daemons.api_key column into
// api_keys rows, one per non-null key, preserving the daemon's created_at
// and last_seen as the key's created_at and last_used. It also backfills
// daemons.updated_at from last_seen.
func externalizeDaemonAPIKeys(ctx context.Context, tx pgx.Tx) error {
	if err := execAll(ctx, tx, apiKeySchemaStatements); err != nil {
		return err
	}

	hasKeyColumn, err := columnExists(ctx, tx, "daemons", "api_key")
	if err != nil {
		return err
	}

	if hasKeyColumn {
		if _, err := tx.Exec(ctx, `
			INSERT INTO api_keys (id, key, name, network_id, is_enabled, last_used, created_at, updated_at)
			SELECT gen_random_uuid(),
			       d.api_key,
			       'daemon-' || left(d.id::text, 8),
			       d.network_id,
			       true,
			       d.last_seen,
			       d.created_at,
			       now()
			FROM daemons d
			WHERE d.api_key IS NOT NULL`); err != nil {
			return fmt.Errorf("externalize api keys: %w", err)
		}
	}

	statements := []string{
		`ALTER TABLE daemons ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ`,
		`UPDATE daemons SET updated_at = last_seen WHERE updated_at IS NULL`,
		`ALTER TABLE daemons ALTER COLUMN updated_at SET NOT NULL`,
		`ALTER TABLE daemons ALTER COLUMN updated_at SET DEFAULT now()`,
		`ALTER TABLE daemons DROP COLUMN IF EXISTS api_key`,
	}

	return execAll(ctx, tx, statements)
}

func execAll(ctx context.Context, tx pgx.Tx, statements []string) error {
	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	return nil
}
