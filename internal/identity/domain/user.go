/**
 * @description
 * Domain model for the identity-service: the user record and its public
 * profile projection. The password hash never leaves this service; handlers
 * only ever serialize the Profile shape.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the full identity record, including the credential hash.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public projection of a user returned by the API.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicProfile returns the API-safe projection of u.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
