package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"clinic-records/internal/domain/prescriptions"
)

type prescriptionRepo struct {
	mu   sync.RWMutex
	byID map[string]prescriptions.Prescription
}

func NewPrescriptionRepo() prescriptions.Repository {
	return &prescriptionRepo{
		byID: make(map[string]prescriptions.Prescription),
	}
}

func (r *prescriptionRepo) Create(ctx context.Context, p prescriptions.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("prescription id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("prescription already exists")
	}
	r.byID[p.ID] = clonePrescription(p)
	return nil
}

func (r *prescriptionRepo) Update(ctx context.Context, p prescriptions.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return prescriptions.ErrNotFound
	}
	r.byID[p.ID] = clonePrescription(p)
	return nil
}

func (r *prescriptionRepo) GetByID(ctx context.Context, id string) (prescriptions.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return prescriptions.Prescription{}, prescriptions.ErrNotFound
	}
	return clonePrescription(p), nil
}

// List no ordena; el service ordena por fecha.
func (r *prescriptionRepo) List(ctx context.Context) ([]prescriptions.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prescriptions.Prescription, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, clonePrescription(p))
	}
	return out, nil
}

func (r *prescriptionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return prescriptions.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func clonePrescription(p prescriptions.Prescription) prescriptions.Prescription {
	if p.DispensedAt != nil {
		t := *p.DispensedAt
		p.DispensedAt = &t
	}
	return p
}
