package pets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	blobfs "clinic-records/internal/adapters/blob/fs"
	"clinic-records/internal/adapters/catalog/static"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/ports/clock"

	"github.com/shopspring/decimal"
)

// -------------------------
// Fakes
// -------------------------

type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]Pet

	// afterGet corre después de cada lectura, fuera del mutex
	afterGet func()
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byID: map[string]Pet{}} }

func (r *fakeRepo) Create(_ context.Context, p Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) Update(_ context.Context, p Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	p.Procedures = append([]Procedure(nil), p.Procedures...)
	r.byID[p.ID] = p
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (Pet, error) {
	r.mu.Lock()
	p, ok := r.byID[id]
	p.Procedures = append([]Procedure(nil), p.Procedures...)
	hook := r.afterGet
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) List(_ context.Context) ([]Pet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pet, 0, len(r.byID))
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

type fakeRecorder struct {
	entries []oplog.Entry
}

func (r *fakeRecorder) Record(_ context.Context, typ oplog.EventType, message, petID string) (oplog.Entry, error) {
	e := oplog.Entry{Type: typ, Message: message, PetID: petID}
	r.entries = append(r.entries, e)
	return e, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeRecorder) {
	t.Helper()
	blobs, err := blobfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	repo := newFakeRepo()
	rec := &fakeRecorder{}
	clk := clock.Fixed{At: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	return NewService(repo, rec, static.New(), blobs, clk), repo, rec
}

// -------------------------
// Tests
// -------------------------

func TestCreateUpdateDelete_Logged(t *testing.T) {
	svc, repo, rec := newTestService(t)
	ctx := context.Background()

	age := 3
	p, err := svc.Create(ctx, Input{Name: " Choco ", Species: "Dog", Owner: "Ana Ruiz", Age: &age})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Name != "Choco" || p.ID == "" {
		t.Fatalf("unexpected pet %+v", p)
	}

	if _, err := svc.Update(ctx, p.ID, Input{Name: "Choco", Species: "Dog", Owner: "Ana R."}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("expected pet removed")
	}

	want := []struct {
		typ oplog.EventType
		msg string
	}{
		{oplog.EventPetCreated, "Added pet Choco"},
		{oplog.EventPetUpdated, "Updated pet Choco"},
		{oplog.EventPetDeleted, "Deleted pet Choco"},
	}
	if len(rec.entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), rec.entries)
	}
	for i, w := range want {
		if rec.entries[i].Type != w.typ || rec.entries[i].Message != w.msg || rec.entries[i].PetID != p.ID {
			t.Fatalf("entry %d: expected %s %q, got %+v", i, w.typ, w.msg, rec.entries[i])
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Input{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	neg := -1
	if _, err := svc.Create(ctx, Input{Name: "Rex", Age: &neg}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative age, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Fatalf("rejected creates must not be logged")
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_ProceduresKeptWhenOmitted(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, Input{
		Name:       "Choco",
		Procedures: []ProcedureInput{{Code: "CONSULT_STANDARD", Date: time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)}},
	})
	if len(p.Procedures) != 1 || !p.Procedures[0].Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected one procedure on 2024-03-05, got %+v", p.Procedures)
	}

	u, _ := svc.Update(ctx, p.ID, Input{Name: "Choco"})
	if len(u.Procedures) != 1 {
		t.Fatalf("procedures must survive an update without them, got %d", len(u.Procedures))
	}

	u, _ = svc.Update(ctx, p.ID, Input{Name: "Choco", Procedures: []ProcedureInput{}})
	if len(u.Procedures) != 0 {
		t.Fatalf("an explicit empty list clears procedures, got %d", len(u.Procedures))
	}
}

func TestAddProcedure_EnrichedAndNotLogged(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, Input{Name: "Choco"})
	logged := len(rec.entries)

	got, err := svc.AddProcedure(ctx, p.ID, ProcedureInput{
		Category: "Laboratory Tests",
		Name:     "Complete Blood Count (CBC)",
		Cost:     decimal.NewNullDecimal(decimal.NewFromInt(500)),
	})
	if err != nil {
		t.Fatalf("add procedure: %v", err)
	}
	pr := got.Procedures[len(got.Procedures)-1]
	if pr.Code != "LAB_CBC" || !pr.CostOrZero().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected procedure %+v", pr)
	}
	if len(rec.entries) != logged {
		t.Fatalf("adding a procedure must not be logged")
	}

	if _, err := svc.AddProcedure(ctx, p.ID, ProcedureInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.AddProcedure(ctx, "missing", ProcedureInput{Code: "LAB_CBC"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddProcedure_OverlappingCallsKeepBoth(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, Input{Name: "Choco"})

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

	cost := func(n int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(n)) }
	first := make(chan error, 1)
	go func() {
		_, err := svc.AddProcedure(ctx, p.ID, ProcedureInput{Code: "CONSULT_STANDARD", Cost: cost(300)})
		first <- err
	}()
	<-reached

	second := make(chan error, 1)
	go func() {
		_, err := svc.AddProcedure(ctx, p.ID, ProcedureInput{Code: "VAC_ANTIRABIES", Cost: cost(350)})
		second <- err
	}()
	select {
	case err := <-second:
		t.Fatalf("second add finished while the first held the pet: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second add: %v", err)
	}

	got, _ := svc.GetByID(ctx, p.ID)
	total := decimal.Zero
	for _, pr := range got.Procedures {
		total = total.Add(pr.CostOrZero())
	}
	if len(got.Procedures) != 2 || !total.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("expected 2 procedures costing 650, got %d costing %s", len(got.Procedures), total)
	}
}

func TestAddProcedure_Concurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, Input{Name: "Choco"})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddProcedure(ctx, p.ID, ProcedureInput{Code: "LAB_CBC"}); err != nil {
				t.Errorf("add procedure: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.GetByID(ctx, p.ID)
	if len(got.Procedures) != n {
		t.Fatalf("expected %d procedures, got %d", n, len(got.Procedures))
	}
	if svc.records.Len() != 0 {
		t.Fatalf("record locks leaked: %d", svc.records.Len())
	}
}

func TestPhoto_ReplaceAndOpen(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Create(ctx, Input{Name: "Choco"})
	if _, _, err := svc.OpenPhoto(ctx, p.ID); !errors.Is(err, ErrNoPhoto) {
		t.Fatalf("expected ErrNoPhoto, got %v", err)
	}

	first, err := svc.SetPhoto(ctx, p.ID, "choco.JPG", "image/jpeg", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("set photo: %v", err)
	}
	if !strings.HasPrefix(first.Photo, "pets/"+p.ID+"/") || !strings.HasSuffix(first.Photo, ".jpg") {
		t.Fatalf("unexpected key %q", first.Photo)
	}

	second, err := svc.SetPhoto(ctx, p.ID, "../../etc/passwd", "image/png", bytes.NewReader([]byte("two")))
	if err != nil {
		t.Fatalf("replace photo: %v", err)
	}
	if _, _, err := svc.blobs.Get(ctx, first.Photo); err == nil {
		t.Fatalf("previous photo must be removed")
	}

	info, rc, err := svc.OpenPhoto(ctx, p.ID)
	if err != nil {
		t.Fatalf("open photo: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "two" || info.ContentType != "image/png" || info.Key != second.Photo {
		t.Fatalf("unexpected photo %q %+v", b, info)
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Type != oplog.EventPetUpdated {
		t.Fatalf("photo upload counts as an update, got %s", last.Type)
	}
}

func TestList_SortedByName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, n := range []string{"max", "Bella", "choco"} {
		_, _ = svc.Create(ctx, Input{Name: n})
	}
	items, err := svc.List(ctx)
	if err != nil || len(items) != 3 {
		t.Fatalf("list: %d %v", len(items), err)
	}
	if items[0].Name != "Bella" || items[1].Name != "choco" || items[2].Name != "max" {
		t.Fatalf("unexpected order %s %s %s", items[0].Name, items[1].Name, items[2].Name)
	}
}
