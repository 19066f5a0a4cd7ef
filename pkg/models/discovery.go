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
	"time"

	"github.com/google/uuid"
)

// DiscoveryKind identifies which variant a discovery metadata record carries.
type DiscoveryKind string

const (
	DiscoveryKindSelfReport DiscoveryKind = "SelfReport"
	DiscoveryKindNetwork    DiscoveryKind = "Network"
	DiscoveryKindDocker     DiscoveryKind = "Docker"

	// DiscoveryKindUnknown marks a record matching neither the current nor
	// the legacy encoding. Unknown records round-trip byte-for-byte.
	DiscoveryKindUnknown DiscoveryKind = ""
)

// discoveryTagKey is the discriminant field of the current encoding;
// legacyTagKey is the discriminant of the encoding it replaced.
const (
	discoveryTagKey = "type"
	legacyTagKey    = "discovery_type"
)

// DiscoveryRecord is one entry of the source.metadata list attached to hosts,
// subnets, groups, and services. It is a closed tagged variant: SelfReport,
// Network, Docker, or an unknown passthrough that preserves the original
// message verbatim.
type DiscoveryRecord struct {
	Kind DiscoveryKind

	// Legacy is true when the record was decoded from the retired
	// discovery_type encoding and needs rewriting.
	Legacy bool

	HostID    *uuid.UUID
	SubnetIDs []uuid.UUID
	DaemonID  uuid.UUID
	Date      time.Time

	raw json.RawMessage
}

// Raw returns the original encoded record. It is non-nil for every record
// decoded via UnmarshalJSON.
func (r *DiscoveryRecord) Raw() json.RawMessage {
	return r.raw
}

func knownDiscoveryKind(tag string) bool {
	switch DiscoveryKind(tag) {
	case DiscoveryKindSelfReport, DiscoveryKindNetwork, DiscoveryKindDocker:
		return true
	default:
		return false
	}
}

type discoveryRecordProbe struct {
	Type          string      `json:"type"`
	DiscoveryType string      `json:"discovery_type"`
	HostID        *uuid.UUID  `json:"host_id"`
	SubnetIDs     []uuid.UUID `json:"subnet_ids"`
	DaemonID      *uuid.UUID  `json:"daemon_id"`
	Date          *time.Time  `json:"date"`
}

// UnmarshalJSON decodes either encoding. Records that fail to match a known
// shape are never an error; they become unknown passthroughs.
func (r *DiscoveryRecord) UnmarshalJSON(data []byte) error {
	*r = DiscoveryRecord{raw: append(json.RawMessage(nil), data...)}

	var probe discoveryRecordProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}

	switch {
	case knownDiscoveryKind(probe.Type):
		r.Kind = DiscoveryKind(probe.Type)
	case knownDiscoveryKind(probe.DiscoveryType):
		// The rewrite keeps daemon_id and date unchanged, so a legacy record
		// missing either has no valid target shape and passes through. The
		// same holds for Docker without host_id; only SelfReport defaults a
		// missing host to the nil identifier.
		if probe.DaemonID == nil || probe.Date == nil {
			return nil
		}

		if DiscoveryKind(probe.DiscoveryType) == DiscoveryKindDocker && probe.HostID == nil {
			return nil
		}

		r.Kind = DiscoveryKind(probe.DiscoveryType)
		r.Legacy = true
	default:
		return nil
	}

	r.HostID = probe.HostID
	r.SubnetIDs = probe.SubnetIDs

	if probe.DaemonID != nil {
		r.DaemonID = *probe.DaemonID
	}

	if probe.Date != nil {
		r.Date = *probe.Date
	}

	return nil
}

type selfReportRecord struct {
	Type     DiscoveryKind `json:"type"`
	HostID   uuid.UUID     `json:"host_id"`
	DaemonID uuid.UUID     `json:"daemon_id"`
	Date     time.Time     `json:"date"`
}

type networkRecord struct {
	Type      DiscoveryKind `json:"type"`
	SubnetIDs []uuid.UUID   `json:"subnet_ids"`
	DaemonID  uuid.UUID     `json:"daemon_id"`
	Date      time.Time     `json:"date"`
}

type dockerRecord struct {
	Type     DiscoveryKind `json:"type"`
	HostID   uuid.UUID     `json:"host_id"`
	DaemonID uuid.UUID     `json:"daemon_id"`
	Date     time.Time     `json:"date"`
}

// MarshalJSON emits the current encoding for legacy records and the original
// bytes for everything else, so already-current and unknown records are
// untouched by a rewrite.
func (r DiscoveryRecord) MarshalJSON() ([]byte, error) {
	if !r.Legacy && r.raw != nil {
		return r.raw, nil
	}

	switch r.Kind {
	case DiscoveryKindSelfReport:
		hostID := uuid.Nil
		if r.HostID != nil {
			hostID = *r.HostID
		}

		return json.Marshal(selfReportRecord{
			Type:     DiscoveryKindSelfReport,
			HostID:   hostID,
			DaemonID: r.DaemonID,
			Date:     r.Date,
		})
	case DiscoveryKindNetwork:
		return json.Marshal(networkRecord{
			Type:      DiscoveryKindNetwork,
			SubnetIDs: r.SubnetIDs,
			DaemonID:  r.DaemonID,
			Date:      r.Date,
		})
	case DiscoveryKindDocker:
		hostID := uuid.Nil
		if r.HostID != nil {
			hostID = *r.HostID
		}

		return json.Marshal(dockerRecord{
			Type:     DiscoveryKindDocker,
			HostID:   hostID,
			DaemonID: r.DaemonID,
			Date:     r.Date,
		})
	default:
		if r.raw != nil {
			return r.raw, nil
		}

		return []byte("null"), nil
	}
}

// DiscoveryRun is a scheduled, ad-hoc, or historical discovery execution.
// RunType and DiscoveryType stay opaque here; the server runtime owns their
// variant shapes.
type DiscoveryRun struct {
	ID            uuid.UUID       `json:"id"`
	NetworkID     uuid.UUID       `json:"network_id"`
	DaemonID      uuid.UUID       `json:"daemon_id"`
	Name          string          `json:"name"`
	RunType       json.RawMessage `json:"run_type"`
	DiscoveryType json.RawMessage `json:"discovery_type"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
