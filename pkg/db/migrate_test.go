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
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func noopMigration(_ context.Context, _ pgx.Tx) error {
	return nil
}

func TestValidateRegistry(t *testing.T) {
	tests := []struct {
		name     string
		registry []Migration
		wantErr  error
	}{
		{
			name: "contiguous from one",
			registry: []Migration{
				{Version: 1, Up: noopMigration},
				{Version: 2, Up: noopMigration},
				{Version: 3, Up: noopMigration},
			},
		},
		{
			name:     "empty registry",
			registry: nil,
		},
		{
			name: "does not start at one",
			registry: []Migration{
				{Version: 2, Up: noopMigration},
			},
			wantErr: ErrMigrationOrder,
		},
		{
			name: "gap in versions",
			registry: []Migration{
				{Version: 1, Up: noopMigration},
				{Version: 3, Up: noopMigration},
			},
			wantErr: ErrMigrationOrder,
		},
		{
			name: "duplicate version",
			registry: []Migration{
				{Version: 1, Up: noopMigration},
				{Version: 1, Up: noopMigration},
			},
			wantErr: ErrMigrationOrder,
		},
		{
			name: "missing forward action",
			registry: []Migration{
				{Version: 1},
			},
			wantErr: ErrMigrationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRegistry(tt.registry)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestCheckAppliedPrefix(t *testing.T) {
	require.NoError(t, checkAppliedPrefix(nil))
	require.NoError(t, checkAppliedPrefix([]int{1}))
	require.NoError(t, checkAppliedPrefix([]int{1, 2, 3}))

	require.ErrorIs(t, checkAppliedPrefix([]int{2}), ErrMigrationOrder)
	require.ErrorIs(t, checkAppliedPrefix([]int{1, 3}), ErrMigrationOrder)
}

// The package registry itself must always satisfy the executor's ordering
// precondition.
func TestRegistryIsWellFormed(t *testing.T) {
	require.NoError(t, validateRegistry(migrations))
	require.NotEmpty(t, migrations)

	for _, m := range migrations {
		require.NotEmpty(t, m.Description, "migration %d needs a description", m.Version)
	}
}
