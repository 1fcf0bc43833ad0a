// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created inactive and become active exactly once, when a valid
// verification token is presented. Raw tokens are never stored; only their
// SHA-256 hashes live in the token hash fields.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Active       bool      `json:"active"`

	VerificationTokenHash *string    `json:"-"`
	ResetTokenHash        *string    `json:"-"`
	ResetTokenExpiresAt   *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the caller-facing projection of a User.
// Password and activation state are stripped, matching login responses.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the projection of the user safe to return to callers.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
