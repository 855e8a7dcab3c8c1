package model

import "time"

// Roles stored in users.role and carried in the JWT "role" claim.
const (
	RoleAudience  = "AUDIENCE"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// User mirrors the `users` table. PasswordHash is a bcrypt hash and must
// never be serialized into API responses.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
