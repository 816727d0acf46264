package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the owner of a journal and its derived state. The engine
// serializes evaluation passes per profile.
type Profile struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	AccessKeyHash  string    `json:"-" db:"access_key_hash"`
	ContactEmail   string    `json:"contact_email,omitempty" db:"contact_email"`
	EmergencyEmail string    `json:"emergency_email,omitempty" db:"emergency_email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// TokenClaims are the JWT claims issued for an authenticated profile.
type TokenClaims struct {
	ProfileID uuid.UUID `json:"profile_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
