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

// Package db owns the Postgres connection and the versioned schema
// migration engine for the network-topology store.
package db

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pimenovoleg/network-topology/pkg/logger"
	"github.com/pimenovoleg/network-topology/pkg/models"
)

// DB wraps the pgx pool used by the migration engine and the query layer.
type DB struct {
	Pool   *pgxpool.Pool
	logger logger.Logger
}

// New dials the configured Postgres database and returns a DB handle.
func New(ctx context.Context, cfg *models.Database, log logger.Logger) (*DB, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &DB{Pool: pool, logger: log}, nil
}

// NewPool dials the configured Postgres database and returns a pgx pool.
func NewPool(ctx context.Context, cfg *models.Database, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil database config", ErrFailedOpenDB)
	}

	settings := *cfg
	if settings.Port == 0 {
		settings.Port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		Path:   "/" + settings.Database,
	}

	if settings.Username != "" {
		if settings.Password != "" {
			connURL.User = url.UserPassword(settings.Username, settings.Password)
		} else {
			connURL.User = url.User(settings.Username)
		}
	}

	query := connURL.Query()

	sslMode := settings.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query.Set("sslmode", sslMode)

	if settings.ApplicationName != "" {
		query.Set("application_name", settings.ApplicationName)
	}

	if settings.StatementTimeout > 0 {
		query.Set("statement_timeout", strconv.FormatInt(settings.StatementTimeout.Milliseconds(), 10))
	}

	for k, v := range settings.ExtraRuntimeParams {
		if k == "" {
			continue
		}

		query.Set(k, v)
	}

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection string: %w", ErrFailedOpenDB, err)
	}

	if settings.MaxConnections > 0 {
		poolConfig.MaxConns = settings.MaxConnections
	}

	if settings.MinConnections > 0 {
		poolConfig.MinConns = settings.MinConnections
	}

	if settings.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = settings.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrFailedOpenDB, err)
	}

	log.Debug().
		Str("host", settings.Host).
		Int("port", settings.Port).
		Str("database", settings.Database).
		Msg("connected to postgres")

	return pool, nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
