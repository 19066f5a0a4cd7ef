package models

import (
	"time"

	"github.com/google/uuid"
)

// Network groups hosts, subnets, daemons, and services under one owning user.
// Every network has exactly one owner at all times.
type Network struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UserID    uuid.UUID `json:"user_id"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
