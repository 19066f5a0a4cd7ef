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
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (

	// Core database errors.

	ErrFailedOpenDB  = errors.New("failed to open database")
	ErrFailedToQuery = errors.New("failed to query")
	ErrFailedToScan  = errors.New("failed to scan")

	// Migration errors.

	ErrMigrationOrder     = errors.New("migration out of order")
	ErrMigrationFailed    = errors.New("migration failed")
	ErrMigrationIntegrity = errors.New("migration data integrity violation")

	// Lookup errors.

	ErrUserNotFound   = errors.New("user not found")
	ErrAPIKeyNotFound = errors.New("api key not found")
)

// integrityViolationClass is the SQLSTATE class for constraint violations.
const integrityViolationClass = "23"

// isIntegrityViolation reports whether err is a Postgres constraint
// violation (unique, foreign key, not-null, check).
func isIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return len(pgErr.Code) >= 2 && pgErr.Code[:2] == integrityViolationClass
}
