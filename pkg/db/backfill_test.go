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
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDeriveEmailCandidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already an address", in: "alice@example.com", want: "alice@example.com"},
		{name: "address with spacing", in: "  alice@example.com ", want: "alice@example.com"},
		{name: "bare name", in: "alice", want: "alice@" + defaultEmailDomain},
		{name: "decorated name", in: "--alice!", want: "alice@" + defaultEmailDomain},
		{name: "interior punctuation kept", in: "al-ice", want: "al-ice@" + defaultEmailDomain},
		{name: "empty name", in: "", want: fallbackEmail},
		{name: "only punctuation", in: "!!!", want: fallbackEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, deriveEmailCandidate(tt.in))
		})
	}
}

func TestAssignUniqueEmailsCollisionGroup(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	oldest := userEmailRow{ID: uuid.New(), Name: "Alice", CreatedAt: day}
	middle := userEmailRow{ID: uuid.New(), Name: "alice", CreatedAt: day.AddDate(0, 0, 1)}
	newest := userEmailRow{ID: uuid.New(), Name: "ALICE", CreatedAt: day.AddDate(0, 0, 2)}

	// Shuffled input; ordering comes from created_at.
	assignments := assignUniqueEmails([]userEmailRow{newest, oldest, middle}, nil)
	require.Len(t, assignments, 3)

	byID := make(map[uuid.UUID]string, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a.Email
	}

	require.Equal(t, "Alice@"+defaultEmailDomain, byID[oldest.ID])
	require.Equal(t, "alice1@"+defaultEmailDomain, byID[middle.ID])
	require.Equal(t, "ALICE2@"+defaultEmailDomain, byID[newest.ID])

	seen := make(map[string]struct{})
	for _, a := range assignments {
		lower := strings.ToLower(a.Email)
		_, dupe := seen[lower]
		require.False(t, dupe, "assignment %q collides case-insensitively", a.Email)
		seen[lower] = struct{}{}
	}
}

func TestAssignUniqueEmailsRespectsExisting(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	user := userEmailRow{ID: uuid.New(), Name: "bob@example.com", CreatedAt: day}

	used := map[string]struct{}{"bob@example.com": {}}

	assignments := assignUniqueEmails([]userEmailRow{user}, used)
	require.Len(t, assignments, 1)
	require.Equal(t, "bob1@example.com", assignments[0].Email)
}

func TestAssignUniqueEmailsFallbackCollides(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := userEmailRow{ID: uuid.New(), Name: "", CreatedAt: day}
	second := userEmailRow{ID: uuid.New(), Name: "???", CreatedAt: day.AddDate(0, 0, 1)}

	assignments := assignUniqueEmails([]userEmailRow{first, second}, nil)
	require.Len(t, assignments, 2)
	require.Equal(t, fallbackEmail, assignments[0].Email)
	require.Equal(t, "admin1@"+defaultEmailDomain, assignments[1].Email)
}

func TestDecorateEmail(t *testing.T) {
	require.Equal(t, "alice3@example.com", decorateEmail("alice@example.com", 3))
	require.Equal(t, "alice7", decorateEmail("alice", 7))
}
