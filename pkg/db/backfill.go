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
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// defaultEmailDomain completes addresses derived from bare display names.
	defaultEmailDomain = "network-topology.local"

	// fallbackEmail is assigned when a user has no usable display name.
	fallbackEmail = "admin@" + defaultEmailDomain
)

type userEmailRow struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type emailAssignment struct {
	ID    uuid.UUID
	Email string
}

// backfillUserEmails introduces the email column, derives a unique address
// for every user lacking one, and only then enforces non-null plus the
// case-insensitive uniqueness constraint.
func backfillUserEmails(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `ALTER TABLE users ADD COLUMN IF NOT EXISTS email TEXT`); err != nil {
		return fmt.Errorf("add email column: %w", err)
	}

	used, err := existingEmails(ctx, tx)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, name, created_at
		FROM users
		WHERE email IS NULL`)
	if err != nil {
		return fmt.Errorf("list users without email: %w", err)
	}

	var pending []userEmailRow

	for rows.Next() {
		var u userEmailRow
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan user: %w", err)
		}

		pending = append(pending, u)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate users: %w", err)
	}

	if len(pending) > 0 {
		assignments := assignUniqueEmails(pending, used)

		ids := make([]uuid.UUID, 0, len(assignments))
		emails := make([]string, 0, len(assignments))

		for _, a := range assignments {
			ids = append(ids, a.ID)
			emails = append(emails, a.Email)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users AS u
			SET email = v.email, updated_at = now()
			FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::text[]) AS email) AS v
			WHERE u.id = v.id`, ids, emails); err != nil {
			return fmt.Errorf("backfill emails: %w", err)
		}
	}

	// Constraints come strictly after the data is complete.
	constraints := []string{
		`ALTER TABLE users ALTER COLUMN email SET NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_ci ON users (lower(email))`,
	}

	return execAll(ctx, tx, constraints)
}

func existingEmails(ctx context.Context, tx pgx.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(ctx, `SELECT lower(email) FROM users WHERE email IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list existing emails: %w", err)
	}
	defer rows.Close()

	used := make(map[string]struct{})

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}

		used[email] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emails: %w", err)
	}

	return used, nil
}

// deriveEmailCandidate maps a display name to an address candidate. Names
// already shaped like an address are used verbatim; anything else is trimmed
// to its alphanumeric core and given the default domain.
func deriveEmailCandidate(name string) string {
	trimmed := strings.TrimSpace(name)
	if strings.Contains(trimmed, "@") {
		return trimmed
	}

	core := strings.TrimFunc(trimmed, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if core == "" {
		return fallbackEmail
	}

	return core + "@" + defaultEmailDomain
}

// assignUniqueEmails resolves candidate collisions case-insensitively.
// Users are processed oldest first, so within a collision group the earliest
// created user keeps the undecorated candidate; later members get an
// increasing integer marker before the domain delimiter.
func assignUniqueEmails(users []userEmailRow, used map[string]struct{}) []emailAssignment {
	sorted := make([]userEmailRow, len(users))
	copy(sorted, users)

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}

		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	if used == nil {
		used = make(map[string]struct{})
	}

	assignments := make([]emailAssignment, 0, len(sorted))

	for _, u := range sorted {
		candidate := deriveEmailCandidate(u.Name)
		final := candidate

		for n := 1; ; n++ {
			if _, taken := used[strings.ToLower(final)]; !taken {
				break
			}

			final = decorateEmail(candidate, n)
		}

		used[strings.ToLower(final)] = struct{}{}
		assignments = append(assignments, emailAssignment{ID: u.ID, Email: final})
	}

	return assignments
}

// decorateEmail inserts the marker before the domain delimiter. Candidates
// without a delimiter cannot occur here, but appending keeps the function
// total.
func decorateEmail(candidate string, n int) string {
	at := strings.LastIndex(candidate, "@")
	if at < 0 {
		return candidate + strconv.Itoa(n)
	}

	return candidate[:at] + strconv.Itoa(n) + candidate[at:]
}
