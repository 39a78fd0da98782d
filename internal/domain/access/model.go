package access

import "strings"

// Role del staff de la clínica.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleVet          Role = "vet"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
)

// ParseRole normaliza (case-insensitive). ok=false si no es un rol conocido.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleVet, RoleReceptionist, RolePharmacist:
		return r, true
	default:
		return "", false
	}
}

// Scope es un permiso de ruta, resuelto sólo por rol.
type Scope string

const (
	ScopePetsRead           Scope = "pets:read"
	ScopePetsWrite          Scope = "pets:write"
	ScopePetsDelete         Scope = "pets:delete"
	ScopeCatalogRead        Scope = "catalog:read"
	ScopeAppointments       Scope = "appointments:manage"
	ScopePrescriptionsRead  Scope = "prescriptions:read"
	ScopePrescriptionsWrite Scope = "prescriptions:write"
	ScopePrescriptionsDisp  Scope = "prescriptions:dispense"
	ScopeUsersManage        Scope = "users:manage"
	ScopeVetsList           Scope = "users:list_vets"
	ScopeOpsRead            Scope = "ops:read"
)

// Action sobre una cita. Se evalúa junto a la relación actor <-> cita.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionApprove  Action = "approve"
	ActionMarkDone Action = "mark_done"
)

// Relation entre el actor y el vet asignado a la cita.
type Relation int

const (
	RelationUnassigned Relation = iota // sin vet asignado
	RelationOwn                        // asignada al actor
	RelationOther                      // asignada a otro vet
)
