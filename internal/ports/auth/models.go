package auth

import "clinic-records/internal/domain/access"

// Claims representa la información extraída del token.
type Claims struct {
	UserID   string
	Username string
	Role     access.Role
}

// Actor es el usuario autenticado que ejecuta una acción.
// Se resuelve contra el store de usuarios en cada request (rol y active
// actuales, no los del token).
type Actor struct {
	ID       string
	Username string
	Name     string
	Role     access.Role
	Active   bool
}
