package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates a daemon against its network. Keys used to live as a
// single nullable column on daemons and were externalized into their own
// table, preserving the original creation and last-used timestamps.
type APIKey struct {
	ID        uuid.UUID  `json:"id"`
	Key       string     `json:"-"`
	Name      string     `json:"name"`
	NetworkID uuid.UUID  `json:"network_id"`
	IsEnabled bool       `json:"is_enabled"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
