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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryRecordDecodeCurrent(t *testing.T) {
	hostID := uuid.New()
	daemonID := uuid.New()

	data := `{"type":"SelfReport","host_id":"` + hostID.String() + `","daemon_id":"` + daemonID.String() + `","date":"2024-06-01T12:00:00Z"}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))

	assert.Equal(t, DiscoveryKindSelfReport, record.Kind)
	assert.False(t, record.Legacy)
	require.NotNil(t, record.HostID)
	assert.Equal(t, hostID, *record.HostID)
	assert.Equal(t, daemonID, record.DaemonID)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), record.Date.UTC())
}

func TestDiscoveryRecordDecodeLegacy(t *testing.T) {
	daemonID := uuid.New()

	data := `{"discovery_type":"Network","subnet_ids":null,"daemon_id":"` + daemonID.String() + `","date":"2024-06-01T12:00:00Z"}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))

	assert.Equal(t, DiscoveryKindNetwork, record.Kind)
	assert.True(t, record.Legacy)
	assert.Nil(t, record.SubnetIDs)
}

func TestDiscoveryRecordDecodeUnknown(t *testing.T) {
	for _, data := range []string{
		`{"vendor":"acme"}`,
		`{"discovery_type":"Teleport","daemon_id":"` + uuid.Nil.String() + `"}`,
		`{"type":"Teleport"}`,
		`"just a string"`,
	} {
		var record DiscoveryRecord
		require.NoError(t, json.Unmarshal([]byte(data), &record), data)

		assert.Equal(t, DiscoveryKindUnknown, record.Kind, data)
		assert.False(t, record.Legacy, data)

		out, err := json.Marshal(record)
		require.NoError(t, err)
		assert.Equal(t, data, string(out), "unknown records must round-trip verbatim")
	}
}

// A legacy tag without daemon_id or date has no valid rewrite target and
// must round-trip unchanged instead of gaining zero values.
func TestDiscoveryRecordDecodeLegacyIncomplete(t *testing.T) {
	data := `{"discovery_type":"Docker","host_id":"` + uuid.Nil.String() + `"}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))

	assert.Equal(t, DiscoveryKindUnknown, record.Kind)
	assert.False(t, record.Legacy)

	out, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}

// Docker records carry their host_id over unchanged, so a legacy record
// without one has no rewrite target. SelfReport is the only variant that
// defaults a missing host to the nil identifier.
func TestDiscoveryRecordDecodeLegacyDockerWithoutHost(t *testing.T) {
	daemonID := uuid.New()

	data := `{"discovery_type":"Docker","daemon_id":"` + daemonID.String() + `","date":"2024-06-01T12:00:00Z"}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))

	assert.Equal(t, DiscoveryKindUnknown, record.Kind)
	assert.False(t, record.Legacy)
	assert.Equal(t, data, string(record.Raw()))

	out, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}

func TestDiscoveryRecordMarshalLegacyRewrites(t *testing.T) {
	daemonID := uuid.New()

	data := `{"discovery_type":"SelfReport","daemon_id":"` + daemonID.String() + `","date":"2024-06-01T12:00:00Z"}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))
	require.True(t, record.Legacy)

	out, err := json.Marshal(record)
	require.NoError(t, err)

	want := `{"type":"SelfReport","host_id":"` + uuid.Nil.String() + `","daemon_id":"` + daemonID.String() + `","date":"2024-06-01T12:00:00Z"}`
	assert.JSONEq(t, want, string(out))
}

func TestDiscoveryRecordMarshalCurrentUsesRaw(t *testing.T) {
	// Field order and extra fields must survive re-encoding.
	data := `{"date":"2024-06-01T12:00:00Z","type":"Docker","host_id":"` + uuid.Nil.String() + `","daemon_id":"` + uuid.Nil.String() + `","extra":1}`

	var record DiscoveryRecord
	require.NoError(t, json.Unmarshal([]byte(data), &record))
	require.Equal(t, DiscoveryKindDocker, record.Kind)

	out, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Equal(t, data, string(out))
}
