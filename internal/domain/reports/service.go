package reports

import (
	"context"
	"errors"
	"sort"
	"time"

	"clinic-records/internal/domain/appointments"
	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/domain/pets"
	"clinic-records/internal/domain/prescriptions"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"

	"github.com/shopspring/decimal"
)

// Fuentes de lectura. El agregador no escribe nada.
type (
	EventSource interface {
		ListBetween(ctx context.Context, from, to time.Time) ([]oplog.Entry, error)
	}
	PetSource interface {
		GetByID(ctx context.Context, id string) (pets.Pet, error)
	}
	AppointmentSource interface {
		List(ctx context.Context) ([]appointments.Appointment, error)
	}
	PrescriptionSource interface {
		List(ctx context.Context) ([]prescriptions.Prescription, error)
	}
)

type Service struct {
	events        EventSource
	pets          PetSource
	appointments  AppointmentSource
	prescriptions PrescriptionSource
	vets          auth.ActorLookup
	clock         clock.Clock
}

// NewService: vets es opcional; sin él el vet se muestra por username.
func NewService(ev EventSource, ps PetSource, as AppointmentSource, rs PrescriptionSource, vets auth.ActorLookup, clk clock.Clock) *Service {
	return &Service{
		events:        ev,
		pets:          ps,
		appointments:  as,
		prescriptions: rs,
		vets:          vets,
		clock:         clk,
	}
}

// ForPeriod resuelve la ventana a partir de la etiqueta y resume.
func (s *Service) ForPeriod(ctx context.Context, period string, from, to time.Time) (Summary, error) {
	f, t, err := ResolvePeriod(period, s.clock.Today(), from, to)
	if err != nil {
		return Summary{}, err
	}
	return s.Summarize(ctx, period, f, t)
}

// Summarize reduce la ventana [from, to] a un resumen. Mismas entradas,
// mismo resultado.
func (s *Service) Summarize(ctx context.Context, period string, from, to time.Time) (Summary, error) {
	from, to = clock.DateOf(from), clock.DateOf(to)
	if from.After(to) {
		return Summary{}, ErrInvalidRange
	}

	out := Summary{
		Period:               period,
		From:                 from,
		To:                   to,
		NewPatients:          []NewPatient{},
		FinishedAppointments: []FinishedAppointment{},
		TotalRevenue:         decimal.Zero,
	}

	events, err := s.events.ListBetween(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	out.Events = events

	petCache := map[string]*pets.Pet{}
	lookupPet := func(id string) (*pets.Pet, error) {
		if id == "" {
			return nil, nil
		}
		if p, ok := petCache[id]; ok {
			return p, nil
		}
		p, err := s.pets.GetByID(ctx, id)
		if errors.Is(err, pets.ErrNotFound) {
			petCache[id] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		petCache[id] = &p
		return &p, nil
	}

	for _, e := range events {
		if e.Type != oplog.EventPetCreated {
			continue
		}
		p, err := lookupPet(e.PetID)
		if err != nil {
			return Summary{}, err
		}
		if p == nil {
			// mascota borrada desde entonces
			continue
		}
		out.NewPatients = append(out.NewPatients, NewPatient{
			PetID:   p.ID,
			PetName: p.Name,
			Owner:   p.Owner,
			AddedAt: e.TS,
		})
	}
	out.PetsAdded = len(out.NewPatients)

	appts, err := s.appointments.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	for _, a := range appts {
		if a.Status != appointments.StatusDone || a.CompletedAt == nil || !clock.InRange(*a.CompletedAt, from, to) {
			continue
		}
		completed := clock.DateOf(*a.CompletedAt)

		item := FinishedAppointment{
			AppointmentID: a.ID,
			Code:          a.Code,
			CompletedAt:   completed,
			Time:          a.Time,
			Vet:           s.vetName(ctx, a),
			VetUsername:   a.VetUsername,
			PetID:         a.PetID,
			Owner:         a.Owner,
			Procedures:    []string{},
			TotalCost:     decimal.Zero,
		}

		p, err := lookupPet(a.PetID)
		if err != nil {
			return Summary{}, err
		}
		if p != nil {
			item.PetName = p.Name
			for _, pr := range p.Procedures {
				if pr.Date.IsZero() || !clock.DateOf(pr.Date).Equal(completed) {
					continue
				}
				item.Procedures = append(item.Procedures, pr.Label())
				item.TotalCost = item.TotalCost.Add(pr.CostOrZero())
			}
		}

		out.FinishedAppointments = append(out.FinishedAppointments, item)
		out.TotalRevenue = out.TotalRevenue.Add(item.TotalCost)
	}
	sort.SliceStable(out.FinishedAppointments, func(i, j int) bool {
		a, b := out.FinishedAppointments[i], out.FinishedAppointments[j]
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.Before(b.CompletedAt)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.AppointmentID < b.AppointmentID
	})
	out.AppointmentsDone = len(out.FinishedAppointments)

	rxs, err := s.prescriptions.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	for _, rx := range rxs {
		if rx.Dispensed && rx.DispensedAt != nil && clock.InRange(*rx.DispensedAt, from, to) {
			out.PrescriptionsDispensed++
		}
	}

	return out, nil
}

func (s *Service) vetName(ctx context.Context, a appointments.Appointment) string {
	if s.vets == nil || a.AssignedVetID == "" {
		return a.VetUsername
	}
	v, err := s.vets.ActorByID(ctx, a.AssignedVetID)
	if err != nil || v.Name == "" {
		return a.VetUsername
	}
	return v.Name
}
