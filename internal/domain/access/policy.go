package access

var roleScopes = map[Role][]Scope{
	RoleAdmin: {
		ScopePetsRead, ScopePetsWrite, ScopePetsDelete, ScopeCatalogRead,
		ScopeAppointments,
		ScopePrescriptionsRead, ScopePrescriptionsWrite, ScopePrescriptionsDisp,
		ScopeUsersManage, ScopeVetsList, ScopeOpsRead,
	},
	RoleVet: {
		ScopePetsRead, ScopePetsWrite, ScopePetsDelete, ScopeCatalogRead,
		ScopeAppointments,
		ScopePrescriptionsRead, ScopePrescriptionsWrite,
	},
	RoleReceptionist: {
		ScopePetsRead, ScopePetsWrite, ScopeCatalogRead,
		ScopeAppointments,
		ScopeVetsList,
	},
	RolePharmacist: {
		ScopePetsRead, ScopeCatalogRead,
		ScopePrescriptionsRead, ScopePrescriptionsDisp,
	},
}

// HasScope valida si el rol incluye un scope.
func HasScope(role Role, scope Scope) bool {
	for _, s := range roleScopes[role] {
		if s == scope {
			return true
		}
	}
	return false
}

// appointmentRules: qué acciones puede hacer cada rol sobre una cita
// ajena (RelationOther). Vet queda fuera: sólo opera sobre citas propias
// o sin asignar.
var appointmentRules = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionCreate: true, ActionUpdate: true, ActionDelete: true,
		ActionApprove: true, ActionMarkDone: true,
	},
	RoleReceptionist: {
		ActionCreate: true, ActionUpdate: true, ActionDelete: true,
	},
}

// Decision explica el resultado para que el caller pueda distinguir
// "no es tu cita" de "tu rol no puede".
type Decision int

const (
	Allow Decision = iota
	DenyRole
	DenyNotOwner
)

// DecideAppointment es la única fuente de verdad para permisos sobre citas.
func DecideAppointment(role Role, action Action, rel Relation) Decision {
	if role == RoleVet {
		if rel == RelationOther {
			return DenyNotOwner
		}
		return Allow
	}
	if appointmentRules[role][action] {
		return Allow
	}
	return DenyRole
}
