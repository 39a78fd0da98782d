package appointments

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"
)

// -------------------------
// Fakes
// -------------------------

type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]Appointment

	// afterGet corre después de cada lectura, fuera del mutex
	afterGet func()
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]Appointment{}} }

func (r *fakeRepo) Create(_ context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	return nil
}

func (r *fakeRepo) Update(_ context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (Appointment, error) {
	r.mu.Lock()
	a, ok := r.byID[id]
	hook := r.afterGet
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) List(_ context.Context) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeDirectory struct {
	actors []auth.Actor
}

func (d fakeDirectory) ActorByID(_ context.Context, id string) (auth.Actor, error) {
	for _, a := range d.actors {
		if a.ID == id {
			return a, nil
		}
	}
	return auth.Actor{}, auth.ErrActorNotFound
}

func (d fakeDirectory) ActorByUsername(_ context.Context, username string) (auth.Actor, error) {
	for _, a := range d.actors {
		if strings.EqualFold(a.Username, username) {
			return a, nil
		}
	}
	return auth.Actor{}, auth.ErrActorNotFound
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []oplog.Entry
}

func (r *fakeRecorder) Record(_ context.Context, typ oplog.EventType, message, petID string) (oplog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := oplog.Entry{Type: typ, Message: message, PetID: petID}
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *fakeRecorder) types() []oplog.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]oplog.EventType, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Type)
	}
	return out
}

type fixedRandom string

func (f fixedRandom) RandomAlphanumeric(n int) string { return string(f)[:n] }

type countingObserver struct {
	mu    sync.Mutex
	rules map[string]int
}

func (o *countingObserver) AppointmentRejected(rule string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rules == nil {
		o.rules = map[string]int{}
	}
	o.rules[rule]++
}

var (
	admin     = auth.Actor{ID: "u-admin", Username: "admin", Name: "Admin", Role: access.RoleAdmin, Active: true}
	reception = auth.Actor{ID: "u-daisy", Username: "daisy", Name: "Daisy", Role: access.RoleReceptionist, Active: true}
	drCruz    = auth.Actor{ID: "u-cruz", Username: "drcruz", Name: "Dr. Cruz", Role: access.RoleVet, Active: true}
	drLee     = auth.Actor{ID: "u-lee", Username: "drlee", Name: "Dr. Lee", Role: access.RoleVet, Active: true}
	pharm     = auth.Actor{ID: "u-paul", Username: "paul", Name: "Paul", Role: access.RolePharmacist, Active: true}
)

type fixture struct {
	svc  *Service
	repo *fakeRepo
	rec  *fakeRecorder
	obs  *countingObserver
	now  time.Time
}

func newFixture() fixture {
	now := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	repo := newFakeRepo()
	rec := &fakeRecorder{}
	obs := &countingObserver{}
	dir := fakeDirectory{actors: []auth.Actor{admin, reception, drCruz, drLee, pharm}}

	svc := NewService(repo, dir, rec, clock.Fixed{At: now}, fixedRandom("ab12cdXYZ"))
	svc.SetObserver(obs)
	return fixture{svc: svc, repo: repo, rec: rec, obs: obs, now: now}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func input(date time.Time, hhmm, vetUsername string) Input {
	return Input{PetID: "pet-1", Owner: "Ana Ruiz", Date: date, Time: hhmm, VetUsername: vetUsername}
}

// -------------------------
// Tests
// -------------------------

func TestCreate_StartsPendingWithCodeAndLog(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusPending || a.CompletedAt != nil {
		t.Fatalf("expected Pending without completion, got %+v", a)
	}
	if a.AssignedVetID != drCruz.ID || a.VetUsername != "drcruz" || a.VetName != "Dr. Cruz" {
		t.Fatalf("unexpected vet fields %+v", a)
	}
	if !regexp.MustCompile(`^APPT-20240105-[A-Z0-9]{6}$`).MatchString(a.Code) || a.Code != "APPT-20240105-AB12CD" {
		t.Fatalf("unexpected code %q", a.Code)
	}

	if len(f.rec.entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(f.rec.entries))
	}
	e := f.rec.entries[0]
	if e.Type != oplog.EventApptCreated || e.Message != "Appointment created for Ana Ruiz" || e.PetID != "pet-1" {
		t.Fatalf("unexpected log entry %+v", e)
	}
}

func TestCreate_KeepsClientCode(t *testing.T) {
	f := newFixture()
	in := input(day(2024, 1, 10), "10:00", "drcruz")
	in.Code = " APPT-CUSTOM-1 "

	a, err := f.svc.Create(context.Background(), admin, in)
	if err != nil || a.Code != "APPT-CUSTOM-1" {
		t.Fatalf("expected client code kept, got %q %v", a.Code, err)
	}
}

func TestCreate_SlotConflictSameVet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// mismo slot con username en otra capitalización y hora con segundos
	_, err := f.svc.Create(ctx, admin, input(day(2024, 1, 10), "10:00:00", "DRCRUZ"))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if f.obs.rules["slot_conflict"] != 1 {
		t.Fatalf("expected rejection observed, got %+v", f.obs.rules)
	}

	// otro vet u otra hora no chocan
	if _, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drlee")); err != nil {
		t.Fatalf("other vet same slot: %v", err)
	}
	if _, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:30", "drcruz")); err != nil {
		t.Fatalf("same vet next slot: %v", err)
	}
	if _, err := f.svc.Create(ctx, reception, input(day(2024, 1, 11), "10:00", "drcruz")); err != nil {
		t.Fatalf("same vet next day: %v", err)
	}
}

func TestCreate_VetSelfAssigns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := input(day(2024, 1, 10), "11:00", "drlee")
	in.AssignedVetID = drLee.ID

	a, err := f.svc.Create(ctx, drCruz, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.AssignedVetID != drCruz.ID || a.VetUsername != "drcruz" {
		t.Fatalf("vet must be forced to the actor, got %+v", a)
	}
}

func TestCreate_VetResolutionErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := day(2024, 1, 10)

	if _, err := f.svc.Create(ctx, reception, input(d, "10:00", "")); !errors.Is(err, ErrVetRequired) {
		t.Fatalf("expected ErrVetRequired, got %v", err)
	}
	if _, err := f.svc.Create(ctx, reception, input(d, "10:00", "ghost")); !errors.Is(err, ErrAssignedVetNotFound) {
		t.Fatalf("expected ErrAssignedVetNotFound, got %v", err)
	}
	if _, err := f.svc.Create(ctx, reception, input(d, "10:00", "paul")); !errors.Is(err, ErrAssignedVetNotFound) {
		t.Fatalf("non-vet target: expected ErrAssignedVetNotFound, got %v", err)
	}

	// el id explícito tiene prioridad sobre el username
	in := input(d, "10:00", "drcruz")
	in.AssignedVetID = drLee.ID
	a, err := f.svc.Create(ctx, admin, in)
	if err != nil || a.VetUsername != "drlee" {
		t.Fatalf("expected id to win, got %+v %v", a, err)
	}

	if _, err := f.svc.Create(ctx, pharm, input(d, "12:00", "drcruz")); !errors.Is(err, ErrRoleNotPermitted) {
		t.Fatalf("expected ErrRoleNotPermitted, got %v", err)
	}
	if _, err := f.svc.Create(ctx, admin, input(d, "07:30", "drcruz")); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if len(f.rec.entries) != 1 {
		t.Fatalf("rejections must not be logged, got %d entries", len(f.rec.entries))
	}
}

func TestCreate_ConcurrentSameSlotOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflicts=%d", ok, conflicts)
	}
	if f.svc.slots.Len() != 0 {
		t.Fatalf("slot locks leaked: %d", f.svc.slots.Len())
	}
}

func TestUpdate_PreservesStatusAndCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	if _, err := f.svc.MarkDone(ctx, drCruz, a.ID); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	logged := len(f.rec.entries)

	in := input(day(2024, 1, 12), "15:30", "drcruz")
	in.Owner = "Ana R."
	got, err := f.svc.Update(ctx, reception, a.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Code != a.Code || got.Status != StatusDone || got.CompletedAt == nil {
		t.Fatalf("update must keep code and status, got %+v", got)
	}
	if got.Owner != "Ana R." || got.Time != "15:30" || !got.Date.Equal(day(2024, 1, 12)) {
		t.Fatalf("fields not updated: %+v", got)
	}
	if len(f.rec.entries) != logged {
		t.Fatalf("update must not be logged")
	}
}

// pauseFirstGet detiene a quien lea primero, ya con el valor leído,
// hasta que se cierre release. Las lecturas siguientes no esperan.
func pauseFirstGet(r *fakeRepo) (reached, release chan struct{}) {
	reached, release = make(chan struct{}), make(chan struct{})
	var (
		mu     sync.Mutex
		paused bool
	)
	hook := func() {
		mu.Lock()
		first := !paused
		paused = true
		mu.Unlock()
		if first {
			close(reached)
			<-release
		}
	}
	r.mu.Lock()
	r.afterGet = hook
	r.mu.Unlock()
	return reached, release
}

func TestUpdate_OverlappingMarkDoneIsNotLost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	reached, release := pauseFirstGet(f.repo)

	in := input(day(2024, 1, 10), "10:00", "drcruz")
	in.Owner = "Ana R."
	updated := make(chan error, 1)
	go func() {
		_, err := f.svc.Update(ctx, reception, a.ID, in)
		updated <- err
	}()
	<-reached

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.MarkDone(ctx, drCruz, a.ID)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("mark done finished while update held the appointment: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	if err := <-updated; err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("mark done: %v", err)
	}

	got, err := f.repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDone || got.CompletedAt == nil || got.Owner != "Ana R." {
		t.Fatalf("expected both writes kept, got status=%s completedAt=%v owner=%q", got.Status, got.CompletedAt, got.Owner)
	}
	types := f.rec.types()
	if types[len(types)-1] != oplog.EventApptDone {
		t.Fatalf("unexpected log %v", types)
	}
	if f.svc.records.Len() != 0 {
		t.Fatalf("record locks leaked: %d", f.svc.records.Len())
	}
}

func TestTransitions_ConcurrentApproveAndDone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	reached, release := pauseFirstGet(f.repo)

	approved := make(chan error, 1)
	go func() {
		_, err := f.svc.Approve(ctx, drCruz, a.ID)
		approved <- err
	}()
	<-reached

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.MarkDone(ctx, drCruz, a.ID)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-approved; err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("mark done: %v", err)
	}

	// el último registrado es el estado guardado
	got, _ := f.repo.GetByID(ctx, a.ID)
	types := f.rec.types()
	if got.Status != StatusDone || types[len(types)-1] != oplog.EventApptDone {
		t.Fatalf("log and store disagree: status=%s log=%v", got.Status, types)
	}
}

func TestUpdate_SlotConflictExcludesSelf(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	b, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "11:00", "drcruz"))

	// re-guardar en su propio slot no choca
	if _, err := f.svc.Update(ctx, reception, a.ID, input(day(2024, 1, 10), "10:00", "drcruz")); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if _, err := f.svc.Update(ctx, reception, b.ID, input(day(2024, 1, 10), "10:00", "drcruz")); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if _, err := f.svc.Update(ctx, reception, "missing", input(day(2024, 1, 10), "10:00", "drcruz")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVetPermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mine, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	theirs, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drlee"))

	if _, err := f.svc.Approve(ctx, drCruz, mine.ID); err != nil {
		t.Fatalf("approve own: %v", err)
	}
	if _, err := f.svc.Approve(ctx, drCruz, theirs.ID); !errors.Is(err, ErrRoleNotPermitted) {
		t.Fatalf("expected ErrRoleNotPermitted on foreign appointment, got %v", err)
	}
	if err := f.svc.Delete(ctx, drCruz, theirs.ID); !errors.Is(err, ErrRoleNotPermitted) {
		t.Fatalf("expected ErrRoleNotPermitted on foreign delete, got %v", err)
	}

	// una cita sin vet (registro viejo) es operable por cualquier vet
	orphan := Appointment{ID: "orphan", PetID: "pet-9", Owner: "Luis", Date: day(2024, 1, 11), Time: "09:00", Code: "APPT-OLD", Status: StatusPending}
	_ = f.repo.Create(ctx, orphan)
	if _, err := f.svc.MarkDone(ctx, drLee, orphan.ID); err != nil {
		t.Fatalf("vet on unassigned appointment: %v", err)
	}
}

func TestReceptionistCannotChangeStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	if _, err := f.svc.Approve(ctx, reception, a.ID); !errors.Is(err, ErrRoleNotPermitted) {
		t.Fatalf("expected ErrRoleNotPermitted, got %v", err)
	}
	if _, err := f.svc.MarkDone(ctx, reception, a.ID); !errors.Is(err, ErrRoleNotPermitted) {
		t.Fatalf("expected ErrRoleNotPermitted, got %v", err)
	}
	if f.obs.rules["role_not_permitted"] != 2 {
		t.Fatalf("expected two observed rejections, got %+v", f.obs.rules)
	}
}

func TestTransitions_LogAndStamp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))

	approved, err := f.svc.Approve(ctx, admin, a.ID)
	if err != nil || approved.Status != StatusApproved {
		t.Fatalf("approve: %+v %v", approved, err)
	}
	// re-aprobar es válido y se registra otra vez
	if _, err := f.svc.Approve(ctx, admin, a.ID); err != nil {
		t.Fatalf("re-approve: %v", err)
	}

	done, err := f.svc.MarkDone(ctx, drCruz, a.ID)
	if err != nil || done.Status != StatusDone || done.CompletedAt == nil || !done.CompletedAt.Equal(day(2024, 1, 5)) {
		t.Fatalf("mark done: %+v %v", done, err)
	}
	if done.VetName != "Dr. Cruz" {
		t.Fatalf("expected derived vet name, got %q", done.VetName)
	}

	// markDone repetido re-estampa con el "hoy" vigente
	f.svc.clock = clock.Fixed{At: time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)}
	again, err := f.svc.MarkDone(ctx, drCruz, a.ID)
	if err != nil || !again.CompletedAt.Equal(day(2024, 1, 8)) {
		t.Fatalf("re-mark done: %+v %v", again, err)
	}

	if _, err := f.svc.Approve(ctx, admin, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve on Done: expected ErrInvalidTransition, got %v", err)
	}

	want := []oplog.EventType{
		oplog.EventApptCreated,
		oplog.EventApptApproved,
		oplog.EventApptApproved,
		oplog.EventApptDone,
		oplog.EventApptDone,
	}
	got := f.rec.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if f.rec.entries[3].Message != "Appointment done for Ana Ruiz" {
		t.Fatalf("unexpected message %q", f.rec.entries[3].Message)
	}
}

func TestDelete_LogsCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz"))
	if err := f.svc.Delete(ctx, reception, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last := f.rec.entries[len(f.rec.entries)-1]
	if last.Type != oplog.EventApptDeleted || last.Message != "Removed appointment #"+a.Code {
		t.Fatalf("unexpected entry %+v", last)
	}
	if _, err := f.svc.GetByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// el slot queda libre
	if _, err := f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drcruz")); err != nil {
		t.Fatalf("slot must be free after delete: %v", err)
	}
}

func TestList_VisibilityFiltersAndOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _ = f.svc.Create(ctx, reception, input(day(2024, 1, 11), "09:00", "drcruz"))
	_, _ = f.svc.Create(ctx, reception, input(day(2024, 1, 10), "15:00", "drcruz"))
	_, _ = f.svc.Create(ctx, reception, input(day(2024, 1, 10), "10:00", "drlee"))
	_ = f.repo.Create(ctx, Appointment{ID: "orphan", Date: day(2024, 1, 9), Time: "08:00", Status: StatusPending})

	all, err := f.svc.List(ctx, admin, ListFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4, got %d %v", len(all), err)
	}
	if all[0].ID != "orphan" || all[1].Time != "10:00" || all[2].Time != "15:00" {
		t.Fatalf("unexpected order %+v", all)
	}

	mine, _ := f.svc.List(ctx, drCruz, ListFilter{Vet: "drlee"})
	if len(mine) != 2 {
		t.Fatalf("vet must only see own appointments, got %d", len(mine))
	}

	byName, _ := f.svc.List(ctx, reception, ListFilter{Vet: "dr. lee"})
	if len(byName) != 1 || byName[0].VetName != "Dr. Lee" {
		t.Fatalf("expected filter by display name, got %+v", byName)
	}

	unassigned, _ := f.svc.List(ctx, reception, ListFilter{Unassigned: true})
	if len(unassigned) != 1 || unassigned[0].ID != "orphan" {
		t.Fatalf("expected only the orphan, got %+v", unassigned)
	}
}

func TestVetName_FallsBackToUsername(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = f.repo.Create(ctx, Appointment{ID: "gone", AssignedVetID: "deleted-user", VetUsername: "drgone", Date: day(2024, 1, 9), Time: "08:00", Status: StatusPending})
	a, err := f.svc.GetByID(ctx, "gone")
	if err != nil || a.VetName != "drgone" {
		t.Fatalf("expected username fallback, got %+v %v", a, err)
	}
}
