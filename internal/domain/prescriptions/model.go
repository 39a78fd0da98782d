package prescriptions

import "time"

// Prescription: DispensedAt != nil sii Dispensed.
type Prescription struct {
	ID string

	PetID   string
	PetName string
	Owner   string

	Drug       string
	Dosage     string
	Directions string
	Prescriber string
	Date       time.Time // fecha de emisión (calendario)

	Dispensed   bool
	DispensedAt *time.Time

	AppointmentID string
	VetID         string

	CreatedAt time.Time
	UpdatedAt time.Time
}
