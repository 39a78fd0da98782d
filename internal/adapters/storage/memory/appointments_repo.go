package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"clinic-records/internal/domain/appointments"
)

type appointmentRepo struct {
	mu   sync.RWMutex
	byID map[string]appointments.Appointment
}

// NewAppointmentRepo hace cumplir la unicidad de (fecha, hora, vet) igual
// que el índice único del store SQL.
func NewAppointmentRepo() appointments.Repository {
	return &appointmentRepo{
		byID: make(map[string]appointments.Appointment),
	}
}

func (r *appointmentRepo) Create(ctx context.Context, a appointments.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("appointment id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("appointment already exists")
	}
	if r.slotTaken(a) {
		return appointments.ErrSlotConflict
	}
	r.byID[a.ID] = cloneAppointment(a)
	return nil
}

func (r *appointmentRepo) Update(ctx context.Context, a appointments.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; !exists {
		return appointments.ErrNotFound
	}
	if r.slotTaken(a) {
		return appointments.ErrSlotConflict
	}
	r.byID[a.ID] = cloneAppointment(a)
	return nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (r *appointmentRepo) List(ctx context.Context) ([]appointments.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]appointments.Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return appointments.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// slotTaken: las citas sin vet no compiten por slot. Requiere r.mu tomado.
func (r *appointmentRepo) slotTaken(a appointments.Appointment) bool {
	if a.VetUsername == "" {
		return false
	}
	for id, other := range r.byID {
		if id == a.ID || other.VetUsername == "" {
			continue
		}
		if other.Date.Equal(a.Date) && other.Time == a.Time && strings.EqualFold(other.VetUsername, a.VetUsername) {
			return true
		}
	}
	return false
}

func cloneAppointment(a appointments.Appointment) appointments.Appointment {
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}
