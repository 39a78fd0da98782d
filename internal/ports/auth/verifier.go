package auth

import (
	"context"
	"errors"
	"time"
)

// ErrActorNotFound: el usuario no existe (o fue borrado).
var ErrActorNotFound = errors.New("actor not found")

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// TokenIssuer emite tokens para un actor ya autenticado.
type TokenIssuer interface {
	Issue(actor Actor) (token string, expiresAt time.Time, err error)
}

// ActorLookup resuelve el actor vigente a partir del userID de los claims.
type ActorLookup interface {
	ActorByID(ctx context.Context, id string) (Actor, error)
}

// Directory agrega búsqueda por username (case-insensitive).
type Directory interface {
	ActorLookup
	ActorByUsername(ctx context.Context, username string) (Actor, error)
}
