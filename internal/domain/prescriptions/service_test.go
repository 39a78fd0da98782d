package prescriptions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/domain/pets"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"
)

// -------------------------
// Fakes
// -------------------------

type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]Prescription

	// afterGet corre después de cada lectura, fuera del mutex
	afterGet func()
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]Prescription{}} }

func (r *fakeRepo) Create(_ context.Context, p Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) Update(_ context.Context, p Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (Prescription, error) {
	r.mu.Lock()
	p, ok := r.byID[id]
	hook := r.afterGet
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return Prescription{}, ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) List(_ context.Context) ([]Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Prescription, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
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

type fakePets map[string]pets.Pet

func (f fakePets) GetByID(_ context.Context, id string) (pets.Pet, error) {
	p, ok := f[id]
	if !ok {
		return pets.Pet{}, pets.ErrNotFound
	}
	return p, nil
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

var (
	drCruz = auth.Actor{ID: "u-cruz", Username: "drcruz", Name: "Dr. Cruz", Role: access.RoleVet, Active: true}
	admin  = auth.Actor{ID: "u-admin", Username: "admin", Name: "Admin", Role: access.RoleAdmin, Active: true}
)

func newTestService() (*Service, *fakeRepo, *fakeRecorder) {
	repo := newFakeRepo()
	rec := &fakeRecorder{}
	pl := fakePets{"pet-1": {ID: "pet-1", Name: "Choco", Owner: "Ana Ruiz"}}
	clk := clock.Fixed{At: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)}
	return NewService(repo, pl, rec, clk), repo, rec
}

// -------------------------
// Tests
// -------------------------

func TestCreate_DefaultsAndLog(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, drCruz, Input{PetID: "pet-1", Drug: "Amoxicillin", Dosage: "250 mg"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.PetName != "Choco" || p.Owner != "Ana Ruiz" {
		t.Fatalf("expected pet data filled, got %+v", p)
	}
	if p.VetID != drCruz.ID || p.Prescriber != "Dr. Cruz" {
		t.Fatalf("expected vet defaults, got %+v", p)
	}
	if !p.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected today, got %s", p.Date)
	}
	if p.Dispensed || p.DispensedAt != nil {
		t.Fatalf("new prescription must not be dispensed")
	}

	if len(rec.entries) != 1 || rec.entries[0].Type != oplog.EventRxCreated || rec.entries[0].Message != "Rx issued for Choco (Amoxicillin)" {
		t.Fatalf("unexpected log %+v", rec.entries)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	cases := []Input{
		{Drug: "Amoxicillin"},
		{PetID: "pet-1", Drug: "  "},
		{PetID: "ghost", Drug: "Amoxicillin"},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, admin, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
	if len(rec.entries) != 0 {
		t.Fatalf("rejections must not be logged")
	}

	// admin no se auto-asigna como vet
	p, err := svc.Create(ctx, admin, Input{PetID: "pet-1", PetName: "Choco", Owner: "Ana", Drug: "Meloxicam"})
	if err != nil || p.VetID != "" || p.Prescriber != "" {
		t.Fatalf("unexpected admin prescription %+v %v", p, err)
	}
}

func TestDispense_StampsAndKeepsOnUpdate(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	p, _ := svc.Create(ctx, drCruz, Input{PetID: "pet-1", Drug: "Amoxicillin"})
	d, err := svc.Dispense(ctx, p.ID)
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if !d.Dispensed || d.DispensedAt == nil || !d.DispensedAt.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected dispensed state %+v", d)
	}
	last := rec.entries[len(rec.entries)-1]
	if last.Type != oplog.EventRxDispensed || last.Message != "Rx dispensed for Choco" || last.PetID != "pet-1" {
		t.Fatalf("unexpected log %+v", last)
	}

	logged := len(rec.entries)
	u, err := svc.Update(ctx, drCruz, p.ID, Input{PetID: "pet-1", Drug: "Amoxicillin", Dosage: "500 mg"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !u.Dispensed || u.DispensedAt == nil || u.Dosage != "500 mg" {
		t.Fatalf("update must keep dispense state, got %+v", u)
	}
	if len(rec.entries) != logged {
		t.Fatalf("update must not be logged")
	}

	if _, err := svc.Dispense(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_OverlappingDispenseIsNotReverted(t *testing.T) {
	svc, repo, rec := newTestService()
	ctx := context.Background()

	p, _ := svc.Create(ctx, drCruz, Input{PetID: "pet-1", Drug: "Amoxicillin"})

	reached, release := make(chan struct{}), make(chan struct{})
	var (
		mu     sync.Mutex
		paused bool
	)
	repo.mu.Lock()
	repo.afterGet = func() {
		mu.Lock()
		first := !paused
		paused = true
		mu.Unlock()
		if first {
			close(reached)
			<-release
		}
	}
	repo.mu.Unlock()

	updated := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, drCruz, p.ID, Input{PetID: "pet-1", Drug: "Amoxicillin", Dosage: "500 mg"})
		updated <- err
	}()
	<-reached

	dispensed := make(chan error, 1)
	go func() {
		_, err := svc.Dispense(ctx, p.ID)
		dispensed <- err
	}()
	select {
	case err := <-dispensed:
		t.Fatalf("dispense finished while update held the prescription: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	if err := <-updated; err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := <-dispensed; err != nil {
		t.Fatalf("dispense: %v", err)
	}

	got, _ := repo.GetByID(ctx, p.ID)
	if !got.Dispensed || got.DispensedAt == nil || got.Dosage != "500 mg" {
		t.Fatalf("expected both writes kept, got %+v", got)
	}
	rec.mu.Lock()
	last := rec.entries[len(rec.entries)-1]
	rec.mu.Unlock()
	if last.Type != oplog.EventRxDispensed {
		t.Fatalf("unexpected last log %+v", last)
	}
	if svc.records.Len() != 0 {
		t.Fatalf("record locks leaked: %d", svc.records.Len())
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, drCruz, Input{PetID: "pet-1", Drug: "A", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	_, _ = svc.Create(ctx, drCruz, Input{PetID: "pet-1", Drug: "B", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)})

	items, err := svc.List(ctx)
	if err != nil || len(items) != 2 || items[0].Drug != "B" {
		t.Fatalf("unexpected list %+v %v", items, err)
	}

	if err := svc.Delete(ctx, items[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, items[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
