package access

import "testing"

func TestDecideAppointment_Table(t *testing.T) {
	all := []Action{ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionMarkDone}

	type tc struct {
		role Role
		rel  Relation
		want map[Action]Decision
	}

	cases := []tc{
		{RoleVet, RelationUnassigned, map[Action]Decision{ActionCreate: Allow, ActionUpdate: Allow, ActionDelete: Allow, ActionApprove: Allow, ActionMarkDone: Allow}},
		{RoleVet, RelationOwn, map[Action]Decision{ActionCreate: Allow, ActionUpdate: Allow, ActionDelete: Allow, ActionApprove: Allow, ActionMarkDone: Allow}},
		{RoleVet, RelationOther, map[Action]Decision{ActionCreate: DenyNotOwner, ActionUpdate: DenyNotOwner, ActionDelete: DenyNotOwner, ActionApprove: DenyNotOwner, ActionMarkDone: DenyNotOwner}},
		{RoleAdmin, RelationOther, map[Action]Decision{ActionCreate: Allow, ActionUpdate: Allow, ActionDelete: Allow, ActionApprove: Allow, ActionMarkDone: Allow}},
		{RoleReceptionist, RelationOther, map[Action]Decision{ActionCreate: Allow, ActionUpdate: Allow, ActionDelete: Allow, ActionApprove: DenyRole, ActionMarkDone: DenyRole}},
		{RoleReceptionist, RelationUnassigned, map[Action]Decision{ActionCreate: Allow, ActionUpdate: Allow, ActionDelete: Allow, ActionApprove: DenyRole, ActionMarkDone: DenyRole}},
		{RolePharmacist, RelationUnassigned, map[Action]Decision{ActionCreate: DenyRole, ActionUpdate: DenyRole, ActionDelete: DenyRole, ActionApprove: DenyRole, ActionMarkDone: DenyRole}},
		{Role("intern"), RelationOwn, map[Action]Decision{ActionCreate: DenyRole, ActionUpdate: DenyRole, ActionDelete: DenyRole, ActionApprove: DenyRole, ActionMarkDone: DenyRole}},
	}

	for _, c := range cases {
		for _, a := range all {
			if got := DecideAppointment(c.role, a, c.rel); got != c.want[a] {
				t.Fatalf("role=%s rel=%d action=%s: got %d want %d", c.role, c.rel, a, got, c.want[a])
			}
		}
	}
}

func TestHasScope(t *testing.T) {
	if !HasScope(RolePharmacist, ScopePrescriptionsDisp) {
		t.Fatalf("pharmacist must dispense")
	}
	if HasScope(RoleVet, ScopePrescriptionsDisp) {
		t.Fatalf("vet must not dispense")
	}
	if HasScope(RoleReceptionist, ScopePetsDelete) {
		t.Fatalf("receptionist must not delete pets")
	}
	if !HasScope(RoleReceptionist, ScopeVetsList) {
		t.Fatalf("receptionist must list vets")
	}
	if HasScope(Role(""), ScopePetsRead) {
		t.Fatalf("unknown role must have no scopes")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" VET "); !ok || r != RoleVet {
		t.Fatalf("expected vet, got %q %v", r, ok)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatalf("owner is not a staff role")
	}
}
