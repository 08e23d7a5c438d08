package domain

import (
	"errors"
	"time"
)

// User is a directory entry. The auth core reads identity and role from it
// and never mutates an existing row; Role is an opaque string preserved
// verbatim into tokens.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// DefaultRole is assigned when registration does not specify a role.
const DefaultRole = "user"

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	return nil
}

// Public is the sanitized projection returned to API clients. It never
// carries the password hash.
type Public struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Sanitized returns the public projection of u.
func (u *User) Sanitized() Public {
	return Public{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
