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
	"time"

	"github.com/google/uuid"
)

// User is the owning principal for networks. PasswordHash is nil for legacy
// users created before authentication existed and for OIDC-only users.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash *string    `json:"-"`
	OIDCProvider *string    `json:"oidc_provider,omitempty"`
	OIDCSubject  *string    `json:"oidc_subject,omitempty"`
	OIDCLinkedAt *time.Time `json:"oidc_linked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsLegacy reports whether the user predates credential-based auth: no
// password hash and no linked OIDC identity.
func (u *User) IsLegacy() bool {
	return u.PasswordHash == nil && u.OIDCSubject == nil
}
