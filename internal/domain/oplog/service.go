package oplog

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidRange = errors.New("from must not be after to")
)

// Observer recibe cada operación registrada (métricas).
type Observer interface {
	OperationRecorded(eventType string)
}

type Service struct {
	repo     Repository
	now      func() time.Time
	observer Observer
}

func NewService(repo Repository, clk clock.Clock) *Service {
	s := &Service{repo: repo, now: time.Now}
	if clk != nil {
		s.now = clk.Now
	}
	return s
}

// SetObserver es opcional; nil lo desactiva.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Record agrega una entrada con la hora actual. Los errores del store
// se devuelven tal cual.
func (s *Service) Record(ctx context.Context, typ EventType, message, petID string) (Entry, error) {
	if strings.TrimSpace(string(typ)) == "" {
		return Entry{}, ErrInvalidInput
	}

	e := Entry{
		ID:      uuid.NewString(),
		TS:      s.now(),
		Type:    typ,
		Message: strings.TrimSpace(message),
		PetID:   strings.TrimSpace(petID),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}

	if s.observer != nil {
		s.observer.OperationRecorded(string(typ))
	}
	return e, nil
}

func (s *Service) ListBetween(ctx context.Context, from, to time.Time) ([]Entry, error) {
	from, to = clock.DateOf(from), clock.DateOf(to)
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return s.repo.ListBetween(ctx, from, to)
}
