package auth

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

var validRoles = map[string]bool{
	RoleStudent: true, RoleDoctor: true, RolePharmacy: true,
	RoleReceptionist: true, RoleStaff: true, RoleAdmin: true,
}
