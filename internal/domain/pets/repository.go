package pets

import "context"

// Repository guarda la mascota junto con sus procedimientos.
type Repository interface {
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error
	GetByID(ctx context.Context, id string) (Pet, error)
	List(ctx context.Context) ([]Pet, error)
	Delete(ctx context.Context, id string) error
}
