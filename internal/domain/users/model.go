package users

import (
	"time"

	"clinic-records/internal/domain/access"
)

// User es una cuenta del staff. Username es único sin distinguir
// mayúsculas.
type User struct {
	ID           string
	Username     string
	Name         string
	Role         access.Role
	PasswordHash string
	Email        string
	Active       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
