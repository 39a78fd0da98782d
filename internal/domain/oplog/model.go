package oplog

import "time"

// Entry es una operación ya registrada. Append-only: nunca se modifica
// ni se borra.
type Entry struct {
	ID      string
	TS      time.Time
	Type    EventType
	Message string
	PetID   string // vacío si no aplica
}
