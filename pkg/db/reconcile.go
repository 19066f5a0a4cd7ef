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
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// seedDisplayName replaces placeholder names on the elected seed user.
const seedDisplayName = "Admin"

// placeholder display names historical installs shipped with.
var placeholderNames = map[string]struct{}{
	"":             {},
	"user":         {},
	"default":      {},
	"default user": {},
}

type legacyUser struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// mergeLegacyUsers collapses all users without a credential into a single
// seed user. The seed inherits every network owned by the losing users;
// losers are deleted only after their networks have been reassigned.
func mergeLegacyUsers(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT id, name, created_at
		FROM users
		WHERE password_hash IS NULL AND oidc_subject IS NULL`)
	if err != nil {
		return fmt.Errorf("list legacy users: %w", err)
	}

	var legacy []legacyUser

	for rows.Next() {
		var u legacyUser
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan legacy user: %w", err)
		}

		legacy = append(legacy, u)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate legacy users: %w", err)
	}

	// Zero or one legacy user means there is nothing to merge.
	if len(legacy) <= 1 {
		return nil
	}

	seed, losers := pickSeedUser(legacy)

	loserIDs := make([]uuid.UUID, 0, len(losers))
	for _, u := range losers {
		loserIDs = append(loserIDs, u.ID)
	}

	// Reassign ownership first; the delete below must never be what moves a
	// network off a losing user.
	if _, err := tx.Exec(ctx, `
		UPDATE networks SET user_id = $1, updated_at = now()
		WHERE user_id = ANY($2)`, seed.ID, loserIDs); err != nil {
		return fmt.Errorf("reassign networks to seed user: %w", err)
	}

	// Cascades cover any entity still scoped directly to a losing user.
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, loserIDs); err != nil {
		return fmt.Errorf("delete merged users: %w", err)
	}

	if name, ok := normalizeSeedName(seed.Name); ok {
		if _, err := tx.Exec(ctx, `
			UPDATE users SET name = $1, updated_at = now()
			WHERE id = $2`, name, seed.ID); err != nil {
			return fmt.Errorf("normalize seed user name: %w", err)
		}
	}

	return nil
}

// pickSeedUser elects the merge survivor: earliest created_at, ties broken
// by byte order of the id so the election is stable across runs.
func pickSeedUser(legacy []legacyUser) (seed legacyUser, losers []legacyUser) {
	sorted := make([]legacyUser, len(legacy))
	copy(sorted, legacy)

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}

		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	return sorted[0], sorted[1:]
}

// normalizeSeedName reports whether the display name is a known placeholder
// and, if so, the fixed replacement.
func normalizeSeedName(name string) (string, bool) {
	if _, ok := placeholderNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return seedDisplayName, true
	}

	return "", false
}
