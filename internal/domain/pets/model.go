package pets

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pet es la ficha clínica de una mascota. Owner es el nombre del dueño
// (texto libre, no un usuario del sistema).
type Pet struct {
	ID string

	Name       string
	Species    string
	Breed      string
	Gender     string
	Age        *int
	Microchip  string
	Owner      string
	Address    string
	Federation string

	Photo string // key en el blob store; vacío = sin foto

	Procedures []Procedure // en orden de carga

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Procedure es un procedimiento realizado a la mascota.
type Procedure struct {
	ID       string
	Date     time.Time // fecha calendario; zero = sin fecha
	Name     string
	Code     string
	Category string
	LabType  string
	Notes    string
	Vet      string

	Medications string
	Dosage      string
	Directions  string

	Cost decimal.NullDecimal
}

// Label es el nombre visible del procedimiento (cae a la categoría).
func (p Procedure) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Category
}

// CostOrZero trata el costo ausente como cero.
func (p Procedure) CostOrZero() decimal.Decimal {
	if !p.Cost.Valid {
		return decimal.Zero
	}
	return p.Cost.Decimal
}
