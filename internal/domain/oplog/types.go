package oplog

// EventType es el tag de cada operación registrada.
type EventType string

const (
	EventPetCreated EventType = "PET_CREATED"
	EventPetUpdated EventType = "PET_UPDATED"
	EventPetDeleted EventType = "PET_DELETED"

	EventApptCreated  EventType = "APPT_CREATED"
	EventApptApproved EventType = "APPT_APPROVED"
	EventApptDone     EventType = "APPT_DONE"
	EventApptDeleted  EventType = "APPT_DELETED"

	EventRxCreated   EventType = "RX_CREATED"
	EventRxDispensed EventType = "RX_DISPENSED"
)
