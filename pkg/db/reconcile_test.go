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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPickSeedUserEarliestWins(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	alice := legacyUser{ID: uuid.New(), Name: "Alice", CreatedAt: day1}
	aliceDupe := legacyUser{ID: uuid.New(), Name: "Alice", CreatedAt: day2}

	seed, losers := pickSeedUser([]legacyUser{aliceDupe, alice})

	require.Equal(t, alice.ID, seed.ID)
	require.Len(t, losers, 1)
	require.Equal(t, aliceDupe.ID, losers[0].ID)
}

func TestPickSeedUserTieBreaksOnID(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	low := legacyUser{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), CreatedAt: created}
	high := legacyUser{ID: uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"), CreatedAt: created}

	seed, losers := pickSeedUser([]legacyUser{high, low})

	require.Equal(t, low.ID, seed.ID)
	require.Equal(t, []legacyUser{high}, losers)

	// Stable regardless of input order.
	seed2, _ := pickSeedUser([]legacyUser{low, high})
	require.Equal(t, seed.ID, seed2.ID)
}

func TestPickSeedUserDoesNotMutateInput(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	input := []legacyUser{
		{ID: uuid.New(), CreatedAt: day1.AddDate(0, 0, 2)},
		{ID: uuid.New(), CreatedAt: day1},
	}
	first := input[0].ID

	_, _ = pickSeedUser(input)

	require.Equal(t, first, input[0].ID)
}

func TestNormalizeSeedName(t *testing.T) {
	tests := []struct {
		name       string
		display    string
		want       string
		wantChange bool
	}{
		{name: "empty", display: "", want: seedDisplayName, wantChange: true},
		{name: "placeholder default", display: "Default", want: seedDisplayName, wantChange: true},
		{name: "placeholder with spacing", display: "  default user  ", want: seedDisplayName, wantChange: true},
		{name: "real name kept", display: "Alice", wantChange: false},
		{name: "already normalized", display: "Admin", wantChange: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := normalizeSeedName(tt.display)
			require.Equal(t, tt.wantChange, changed)

			if tt.wantChange {
				require.Equal(t, tt.want, got)
			}
		})
	}
}
