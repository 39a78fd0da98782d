package appointments

import (
	"context"
	"errors"
	"sort"
	"strings"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/platform/keylock"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
)

// RejectionObserver recibe la regla violada en cada rechazo de negocio.
type RejectionObserver interface {
	AppointmentRejected(rule string)
}

type Service struct {
	repo     Repository
	vets     auth.Directory
	log      oplog.Recorder
	clock    clock.Clock
	random   clock.RandomID
	slots    *keylock.Map // check+write por slot
	records  *keylock.Map // leer-modificar-escribir por cita
	observer RejectionObserver
}

func NewService(repo Repository, vets auth.Directory, log oplog.Recorder, clk clock.Clock, rnd clock.RandomID) *Service {
	return &Service{
		repo:    repo,
		vets:    vets,
		log:     log,
		clock:   clk,
		random:  rnd,
		slots:   keylock.New(),
		records: keylock.New(),
	}
}

func (s *Service) SetObserver(o RejectionObserver) {
	s.observer = o
}

// fail notifica al observer si err es un rechazo de negocio.
func (s *Service) fail(err error) error {
	if s.observer != nil {
		if rule := ruleOf(err); rule != "" {
			s.observer.AppointmentRejected(rule)
		}
	}
	return err
}

// Create: siempre arranca en Pending; el código se genera si no viene.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Appointment, error) {
	if err := Authorize(nil, actor, access.ActionCreate); err != nil {
		return Appointment{}, s.fail(err)
	}
	in, err := Normalize(in)
	if err != nil {
		return Appointment{}, s.fail(err)
	}
	vet, err := s.ResolveVet(ctx, in, actor)
	if err != nil {
		return Appointment{}, s.fail(err)
	}

	now := s.clock.Now()
	a := Appointment{
		ID:            uuid.NewString(),
		PetID:         in.PetID,
		Owner:         in.Owner,
		Date:          in.Date,
		Time:          in.Time,
		Code:          in.Code,
		AssignedVetID: vet.ID,
		VetUsername:   vet.Username,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if a.Code == "" {
		a.Code = GenerateCode(s.clock.Today(), s.random)
	}

	unlock := s.slots.Lock(slotKey(a.Date, a.Time, a.VetUsername))
	defer unlock()

	if err := s.CheckSlotAvailable(ctx, a.Date, a.Time, a.VetUsername, ""); err != nil {
		return Appointment{}, s.fail(err)
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Appointment{}, s.fail(err)
	}
	if _, err := s.log.Record(ctx, oplog.EventApptCreated, "Appointment created for "+a.Owner, a.PetID); err != nil {
		return Appointment{}, err
	}

	a.VetName = vet.Name
	return a, nil
}

// Update es un cambio de campos: conserva estado, fecha de cierre y,
// si no viene, el código. No registra operación.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Appointment, error) {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, s.fail(err)
	}
	if err := Authorize(&existing, actor, access.ActionUpdate); err != nil {
		return Appointment{}, s.fail(err)
	}

	if strings.TrimSpace(in.Code) == "" {
		in.Code = existing.Code
	}
	in, err = Normalize(in)
	if err != nil {
		return Appointment{}, s.fail(err)
	}
	vet, err := s.ResolveVet(ctx, in, actor)
	if err != nil {
		return Appointment{}, s.fail(err)
	}

	a := existing
	a.PetID = in.PetID
	a.Owner = in.Owner
	a.Date = in.Date
	a.Time = in.Time
	a.Code = in.Code
	a.AssignedVetID = vet.ID
	a.VetUsername = vet.Username
	a.UpdatedAt = s.clock.Now()

	// orden fijo: cita y luego slot
	unlock := s.slots.Lock(slotKey(a.Date, a.Time, a.VetUsername))
	defer unlock()

	if err := s.CheckSlotAvailable(ctx, a.Date, a.Time, a.VetUsername, a.ID); err != nil {
		return Appointment{}, s.fail(err)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return Appointment{}, s.fail(err)
	}

	a.VetName = vet.Name
	return a, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(err)
	}
	if err := Authorize(&existing, actor, access.ActionDelete); err != nil {
		return s.fail(err)
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return s.fail(err)
	}
	_, err = s.log.Record(ctx, oplog.EventApptDeleted, "Removed appointment #"+existing.Code, existing.PetID)
	return err
}

// Approve es idempotente: re-aprobar re-estampa y registra de nuevo.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, id string) (Appointment, error) {
	return s.transition(ctx, actor, id, access.ActionApprove, EventApprove)
}

// MarkDone fija CompletedAt = hoy en cada llamada.
func (s *Service) MarkDone(ctx context.Context, actor auth.Actor, id string) (Appointment, error) {
	return s.transition(ctx, actor, id, access.ActionMarkDone, EventMarkDone)
}

func (s *Service) transition(ctx context.Context, actor auth.Actor, id string, action access.Action, ev Event) (Appointment, error) {
	id = strings.TrimSpace(id)
	release := s.records.Lock(id)
	defer release()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, s.fail(err)
	}
	if err := Authorize(&a, actor, action); err != nil {
		return Appointment{}, s.fail(err)
	}

	next, err := a.Status.Transition(ev)
	if err != nil {
		return Appointment{}, s.fail(err)
	}
	a.Status = next
	a.UpdatedAt = s.clock.Now()

	var (
		typ oplog.EventType
		msg string
	)
	switch next {
	case StatusDone:
		today := s.clock.Today()
		a.CompletedAt = &today
		typ, msg = oplog.EventApptDone, "Appointment done for "+a.Owner
	case StatusApproved:
		a.CompletedAt = nil
		typ, msg = oplog.EventApptApproved, "Appointment approved for "+a.Owner
	case StatusPending:
		// ningún evento vuelve a Pending
		return Appointment{}, s.fail(ErrInvalidTransition)
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return Appointment{}, err
	}
	if _, err := s.log.Record(ctx, typ, msg, a.PetID); err != nil {
		return Appointment{}, err
	}
	return s.withVetName(ctx, a, nil), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Appointment, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Appointment{}, err
	}
	return s.withVetName(ctx, a, nil), nil
}

type ListFilter struct {
	Vet        string // nombre o username del vet
	Unassigned bool
}

// List: un vet sólo ve sus citas; admin y recepción ven todas y pueden
// filtrar. Orden por fecha, hora y código.
func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) ([]Appointment, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	out := make([]Appointment, 0, len(items))
	for _, a := range items {
		if actor.Role == access.RoleVet && a.AssignedVetID != actor.ID {
			continue
		}
		if f.Unassigned && a.AssignedVetID != "" && a.VetUsername != "" {
			continue
		}
		a = s.withVetName(ctx, a, names)
		if v := strings.TrimSpace(f.Vet); v != "" && actor.Role != access.RoleVet {
			if !strings.EqualFold(a.VetName, v) && !strings.EqualFold(a.VetUsername, v) {
				continue
			}
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// withVetName deriva el nombre visible del vet asignado. Si el usuario
// ya no existe queda el username guardado.
func (s *Service) withVetName(ctx context.Context, a Appointment, cache map[string]string) Appointment {
	a.VetName = a.VetUsername
	if a.AssignedVetID == "" {
		return a
	}
	if name, ok := cache[a.AssignedVetID]; ok {
		a.VetName = name
		return a
	}
	if v, err := s.vets.ActorByID(ctx, a.AssignedVetID); err == nil && v.Name != "" {
		a.VetName = v.Name
	} else if err != nil && !errors.Is(err, auth.ErrActorNotFound) {
		return a
	}
	if cache != nil {
		cache[a.AssignedVetID] = a.VetName
	}
	return a
}
