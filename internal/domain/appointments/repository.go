package appointments

import "context"

// Repository: Create/Update devuelven ErrSlotConflict si el store ya
// tiene otra cita en el mismo (fecha, hora, vet).
type Repository interface {
	Create(ctx context.Context, a Appointment) error
	Update(ctx context.Context, a Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	List(ctx context.Context) ([]Appointment, error)
	Delete(ctx context.Context, id string) error
}
