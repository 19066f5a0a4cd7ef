package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Daemon is an agent process reporting into a network. Capabilities is an
// open-ended attribute set; its keys are owned by the daemon runtime, the
// server only stores them.
type Daemon struct {
	ID           uuid.UUID       `json:"id"`
	NetworkID    uuid.UUID       `json:"network_id"`
	HostID       uuid.UUID       `json:"host_id"`
	IP           string          `json:"ip"`
	Port         int             `json:"port"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	LastSeen     time.Time       `json:"last_seen"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
