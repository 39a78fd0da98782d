package appointments

import (
	"fmt"
	"time"
)

// Status es cerrado: sólo estos tres valores son válidos.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusDone     Status = "Done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDone:
		return true
	default:
		return false
	}
}

// Event dispara una transición de estado. Create y delete no pasan por
// acá: create siempre arranca en Pending y delete borra el registro.
type Event string

const (
	EventApprove  Event = "approve"
	EventMarkDone Event = "mark_done"
)

// Transition es el único lugar donde se calcula un estado nuevo.
func (s Status) Transition(ev Event) (Status, error) {
	switch s {
	case StatusPending, StatusApproved:
		switch ev {
		case EventApprove:
			return StatusApproved, nil
		case EventMarkDone:
			return StatusDone, nil
		}
	case StatusDone:
		// markDone repetido re-estampa la fecha de cierre
		if ev == EventMarkDone {
			return StatusDone, nil
		}
		return s, fmt.Errorf("%w: cannot %s a done appointment", ErrInvalidTransition, ev)
	}
	return s, fmt.Errorf("%w: %s from %q", ErrInvalidTransition, ev, s)
}

// Appointment: AssignedVetID es la referencia autoritativa al vet.
// VetUsername se guarda para indexar el slot; VetName se deriva al leer.
type Appointment struct {
	ID    string
	PetID string
	Owner string

	Date time.Time // fecha calendario (medianoche UTC)
	Time string    // HH:MM
	Code string

	AssignedVetID string
	VetUsername   string
	VetName       string

	Status      Status
	CompletedAt *time.Time // != nil sii Status == Done

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input es lo que llega del cliente para create/update.
type Input struct {
	PetID         string
	Owner         string
	Date          time.Time
	Time          string
	Code          string
	AssignedVetID string
	VetUsername   string
}
