package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/domain/pets"
	"clinic-records/internal/platform/keylock"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("prescription not found")
)

// PetLookup completa nombre y dueño de la mascota cuando no vienen.
type PetLookup interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
}

type Service struct {
	repo    Repository
	pets    PetLookup
	log     oplog.Recorder
	clock   clock.Clock
	records *keylock.Map
}

func NewService(repo Repository, pl PetLookup, log oplog.Recorder, clk clock.Clock) *Service {
	return &Service{repo: repo, pets: pl, log: log, clock: clk, records: keylock.New()}
}

type Input struct {
	PetID         string
	PetName       string
	Owner         string
	Drug          string
	Dosage        string
	Directions    string
	Prescriber    string
	Date          time.Time // zero = hoy
	AppointmentID string
	VetID         string
}

// Create emite la receta sin despachar. VetID y Prescriber toman al
// actor si no vienen.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Prescription, error) {
	in, err := s.normalize(ctx, actor, in)
	if err != nil {
		return Prescription{}, err
	}

	now := s.clock.Now()
	p := Prescription{ID: uuid.NewString(), CreatedAt: now}
	apply(&p, in)
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return Prescription{}, err
	}
	msg := fmt.Sprintf("Rx issued for %s (%s)", p.PetName, p.Drug)
	if _, err := s.log.Record(ctx, oplog.EventRxCreated, msg, p.PetID); err != nil {
		return Prescription{}, err
	}
	return p, nil
}

// Update reemplaza los datos; el estado de despacho se conserva. No
// registra operación.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Prescription, error) {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Prescription{}, err
	}
	in, err = s.normalize(ctx, actor, in)
	if err != nil {
		return Prescription{}, err
	}

	apply(&p, in)
	p.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Prescription{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	return s.repo.Delete(ctx, id)
}

// Dispense marca la receta como despachada hoy. Repetirlo re-estampa.
func (s *Service) Dispense(ctx context.Context, id string) (Prescription, error) {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Prescription{}, err
	}

	today := s.clock.Today()
	p.Dispensed = true
	p.DispensedAt = &today
	p.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Prescription{}, err
	}
	if _, err := s.log.Record(ctx, oplog.EventRxDispensed, "Rx dispensed for "+p.PetName, p.PetID); err != nil {
		return Prescription{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Prescription, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// List: más recientes primero.
func (s *Service) List(ctx context.Context) ([]Prescription, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Service) normalize(ctx context.Context, actor auth.Actor, in Input) (Input, error) {
	in.PetID = strings.TrimSpace(in.PetID)
	in.Drug = strings.TrimSpace(in.Drug)
	if in.PetID == "" {
		return Input{}, fmt.Errorf("%w: pet is required", ErrInvalidInput)
	}
	if in.Drug == "" {
		return Input{}, fmt.Errorf("%w: drug is required", ErrInvalidInput)
	}

	in.PetName = strings.TrimSpace(in.PetName)
	in.Owner = strings.TrimSpace(in.Owner)
	if (in.PetName == "" || in.Owner == "") && s.pets != nil {
		pet, err := s.pets.GetByID(ctx, in.PetID)
		switch {
		case errors.Is(err, pets.ErrNotFound):
			return Input{}, fmt.Errorf("%w: pet %q not found", ErrInvalidInput, in.PetID)
		case err != nil:
			return Input{}, err
		}
		if in.PetName == "" {
			in.PetName = pet.Name
		}
		if in.Owner == "" {
			in.Owner = pet.Owner
		}
	}

	in.VetID = strings.TrimSpace(in.VetID)
	in.Prescriber = strings.TrimSpace(in.Prescriber)
	if actor.Role == access.RoleVet {
		if in.VetID == "" {
			in.VetID = actor.ID
		}
		if in.Prescriber == "" {
			in.Prescriber = actor.Name
		}
	}

	if in.Date.IsZero() {
		in.Date = s.clock.Today()
	}
	in.Date = clock.DateOf(in.Date)
	return in, nil
}

func apply(p *Prescription, in Input) {
	p.PetID = in.PetID
	p.PetName = in.PetName
	p.Owner = in.Owner
	p.Drug = in.Drug
	p.Dosage = strings.TrimSpace(in.Dosage)
	p.Directions = strings.TrimSpace(in.Directions)
	p.Prescriber = in.Prescriber
	p.Date = in.Date
	p.AppointmentID = strings.TrimSpace(in.AppointmentID)
	p.VetID = in.VetID
}
