package reports

import (
	"time"

	"clinic-records/internal/domain/oplog"

	"github.com/shopspring/decimal"
)

// NewPatient sale de un PET_CREATED del período cuya mascota aún existe.
type NewPatient struct {
	PetID   string
	PetName string
	Owner   string
	AddedAt time.Time // TS del log
}

// FinishedAppointment es una cita Done con fecha de cierre en el período.
type FinishedAppointment struct {
	AppointmentID string
	Code          string
	CompletedAt   time.Time
	Time          string
	Vet           string
	VetUsername   string
	PetID         string
	PetName       string
	Owner         string
	Procedures    []string
	TotalCost     decimal.Decimal
}

type Summary struct {
	Period string
	From   time.Time
	To     time.Time

	Events []oplog.Entry

	NewPatients []NewPatient
	PetsAdded   int

	FinishedAppointments []FinishedAppointment
	AppointmentsDone     int
	TotalRevenue         decimal.Decimal

	PrescriptionsDispensed int
}
