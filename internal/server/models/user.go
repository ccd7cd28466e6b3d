// Package models defines server-side data models persisted in the database.
package models

import "time"

// Roles a user account can hold. Flat, no hierarchy.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	IsVerified   bool
	LastLoginAt  *time.Time
	LoginCount   int

	// Emergency card token. Empty until first issuance; overwritten (and the
	// old value thereby invalidated) on every re-issuance.
	EmergencyCardToken       string
	EmergencyCardTokenExpiry *time.Time

	// ProfileScore is the 0-100 directive completeness percentage, recomputed
	// on every directive write.
	ProfileScore int

	CreatedAt time.Time
}

// PublicUser is the caller-facing projection of a User; it never carries the
// password hash or card token.
type PublicUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	ProfileScore int       `json:"profileScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		ProfileScore: u.ProfileScore,
		CreatedAt:    u.CreatedAt,
	}
}
