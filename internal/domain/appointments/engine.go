package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/ports/auth"
	"clinic-records/internal/ports/clock"
)

var (
	ErrMissingField        = errors.New("missing field")
	ErrInvalidTime         = errors.New("invalid time")
	ErrRoleNotPermitted    = errors.New("role not permitted")
	ErrAssignedVetNotFound = errors.New("assigned vet not found")
	ErrVetRequired         = errors.New("an active vet must be assigned to the appointment")
	ErrSlotConflict        = errors.New("selected vet already has an appointment for this slot")
	ErrNotFound            = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Horario de la clínica, en minutos desde medianoche.
const (
	openingMinute = 8 * 60
	closingMinute = 22 * 60
	slotMinutes   = 30
)

// NormalizeTime acepta HH:mm o HH:mm:00 y devuelve HH:MM. El turno debe
// empezar en :00 o :30 y caer en [08:00, 22:00].
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return "", fmt.Errorf("%w: use HH:mm", ErrInvalidTime)
	}

	h, okH := twoDigits(parts[0])
	m, okM := twoDigits(parts[1])
	if !okH || !okM || h > 23 || m > 59 {
		return "", fmt.Errorf("%w: use HH:mm", ErrInvalidTime)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return "", fmt.Errorf("%w: seconds must be :00", ErrInvalidTime)
	}
	if m%slotMinutes != 0 {
		return "", fmt.Errorf("%w: appointments must start on 30-minute intervals", ErrInvalidTime)
	}
	if total := h*60 + m; total < openingMinute || total > closingMinute {
		return "", fmt.Errorf("%w: appointments must be between 08:00 and 22:00", ErrInvalidTime)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Normalize valida campos obligatorios y la hora.
func Normalize(in Input) (Input, error) {
	in.PetID = strings.TrimSpace(in.PetID)
	in.Owner = strings.TrimSpace(in.Owner)
	in.Code = strings.TrimSpace(in.Code)
	in.AssignedVetID = strings.TrimSpace(in.AssignedVetID)
	in.VetUsername = strings.TrimSpace(in.VetUsername)

	switch {
	case strings.TrimSpace(in.Time) == "":
		return Input{}, fmt.Errorf("%w: time is required", ErrMissingField)
	case in.Date.IsZero():
		return Input{}, fmt.Errorf("%w: date is required", ErrMissingField)
	case in.PetID == "":
		return Input{}, fmt.Errorf("%w: pet is required", ErrMissingField)
	case in.Owner == "":
		return Input{}, fmt.Errorf("%w: owner name is required", ErrMissingField)
	}

	t, err := NormalizeTime(in.Time)
	if err != nil {
		return Input{}, err
	}
	in.Time = t
	in.Date = clock.DateOf(in.Date)
	return in, nil
}

// Authorize decide si actor puede ejecutar action sobre existing
// (nil en create). El error nombra la regla violada.
func Authorize(existing *Appointment, actor auth.Actor, action access.Action) error {
	rel := access.RelationUnassigned
	if existing != nil && existing.AssignedVetID != "" {
		rel = access.RelationOther
		if existing.AssignedVetID == actor.ID {
			rel = access.RelationOwn
		}
	}

	switch access.DecideAppointment(actor.Role, action, rel) {
	case access.Allow:
		return nil
	case access.DenyNotOwner:
		return fmt.Errorf("%w: you can only %s your own appointments", ErrRoleNotPermitted, verb(action))
	default:
		return fmt.Errorf("%w: role %q cannot %s appointments", ErrRoleNotPermitted, actor.Role, verb(action))
	}
}

func verb(a access.Action) string {
	if a == access.ActionMarkDone {
		return "mark as done"
	}
	return string(a)
}

// GenerateCode: APPT-<YYYYMMDD>-<6 alfanuméricos en mayúscula>.
func GenerateCode(today time.Time, rnd clock.RandomID) string {
	return "APPT-" + today.Format("20060102") + "-" + strings.ToUpper(rnd.RandomAlphanumeric(6))
}

// VetRef es el vet resuelto para una cita.
type VetRef struct {
	ID       string
	Username string
	Name     string
}

// ResolveVet fija el vet de la cita. Un vet sólo puede asignarse a sí
// mismo; admin y recepción eligen por id o por username.
func (s *Service) ResolveVet(ctx context.Context, in Input, actor auth.Actor) (VetRef, error) {
	switch actor.Role {
	case access.RoleVet:
		return VetRef{ID: actor.ID, Username: actor.Username, Name: actor.Name}, nil

	case access.RoleAdmin, access.RoleReceptionist:
		var (
			target auth.Actor
			err    error
		)
		switch {
		case strings.TrimSpace(in.AssignedVetID) != "":
			target, err = s.vets.ActorByID(ctx, strings.TrimSpace(in.AssignedVetID))
		case strings.TrimSpace(in.VetUsername) != "":
			target, err = s.vets.ActorByUsername(ctx, strings.TrimSpace(in.VetUsername))
		default:
			return VetRef{}, ErrVetRequired
		}
		if err != nil {
			if errors.Is(err, auth.ErrActorNotFound) {
				return VetRef{}, ErrAssignedVetNotFound
			}
			return VetRef{}, err
		}
		if target.Role != access.RoleVet {
			return VetRef{}, fmt.Errorf("%w: user %q is not a vet", ErrAssignedVetNotFound, target.Username)
		}
		return VetRef{ID: target.ID, Username: target.Username, Name: target.Name}, nil

	default:
		return VetRef{}, fmt.Errorf("%w: your role does not permit managing appointments", ErrRoleNotPermitted)
	}
}

// CheckSlotAvailable falla con ErrSlotConflict si otra cita (distinta de
// excludingID) ocupa fecha+hora+vet. Sin vet no hay nada que chequear.
func (s *Service) CheckSlotAvailable(ctx context.Context, date time.Time, hhmm, vetUsername, excludingID string) error {
	if strings.TrimSpace(vetUsername) == "" {
		return nil
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	date = clock.DateOf(date)
	for _, a := range items {
		if a.ID == excludingID {
			continue
		}
		if a.Date.Equal(date) && a.Time == hhmm && strings.EqualFold(a.VetUsername, vetUsername) {
			return ErrSlotConflict
		}
	}
	return nil
}

func slotKey(date time.Time, hhmm, vetUsername string) string {
	if strings.TrimSpace(vetUsername) == "" {
		return ""
	}
	return date.Format("20060102") + "|" + hhmm + "|" + strings.ToLower(vetUsername)
}

// ruleOf traduce el error a una etiqueta estable (métricas, JSON).
func ruleOf(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrRoleNotPermitted):
		return "role_not_permitted"
	case errors.Is(err, ErrAssignedVetNotFound):
		return "assigned_vet_not_found"
	case errors.Is(err, ErrVetRequired):
		return "vet_required"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return ""
	}
}
