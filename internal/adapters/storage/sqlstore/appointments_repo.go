package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"clinic-records/internal/domain/appointments"

	"github.com/jmoiron/sqlx"
)

// AppointmentsRepo: el índice único appointments_slot_uq respalda el
// lock en proceso del service cuando hay más de una instancia.
type AppointmentsRepo struct {
	db *sqlx.DB
}

func NewAppointmentsRepo(db *sqlx.DB) *AppointmentsRepo {
	return &AppointmentsRepo{db: db}
}

type appointmentRow struct {
	ID            string         `db:"id"`
	PetID         string         `db:"pet_id"`
	Owner         string         `db:"owner"`
	Date          string         `db:"appt_date"`
	Time          string         `db:"appt_time"`
	Code          string         `db:"code"`
	AssignedVetID string         `db:"assigned_vet_id"`
	VetUsername   string         `db:"vet_username"`
	VetKey        string         `db:"vet_key"`
	Status        string         `db:"status"`
	CompletedAt   sql.NullString `db:"completed_at"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

const appointmentColumns = `id, pet_id, owner, appt_date, appt_time, code, assigned_vet_id, vet_username, vet_key, status, completed_at, created_at, updated_at`

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (:id, :pet_id, :owner, :appt_date, :appt_time, :code, :assigned_vet_id, :vet_username, :vet_key, :status, :completed_at, :created_at, :updated_at)
	`, toAppointmentRow(a))
	if isUniqueViolation(err) {
		return appointments.ErrSlotConflict
	}
	return err
}

func (r *AppointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE appointments SET
			pet_id = :pet_id, owner = :owner, appt_date = :appt_date, appt_time = :appt_time,
			code = :code, assigned_vet_id = :assigned_vet_id, vet_username = :vet_username,
			vet_key = :vet_key, status = :status, completed_at = :completed_at,
			updated_at = :updated_at
		WHERE id = :id
	`, toAppointmentRow(a))
	if isUniqueViolation(err) {
		return appointments.ErrSlotConflict
	}
	if err != nil {
		return err
	}
	return expectAffected(res, appointments.ErrNotFound)
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	var row appointmentRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	if err != nil {
		return appointments.Appointment{}, err
	}
	return fromAppointmentRow(row)
}

func (r *AppointmentsRepo) List(ctx context.Context) ([]appointments.Appointment, error) {
	var rows []appointmentRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+appointmentColumns+` FROM appointments ORDER BY appt_date, appt_time, code
	`); err != nil {
		return nil, err
	}

	out := make([]appointments.Appointment, 0, len(rows))
	for _, row := range rows {
		a, err := fromAppointmentRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *AppointmentsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM appointments WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectAffected(res, appointments.ErrNotFound)
}

func toAppointmentRow(a appointments.Appointment) appointmentRow {
	return appointmentRow{
		ID:            a.ID,
		PetID:         a.PetID,
		Owner:         a.Owner,
		Date:          formatDate(a.Date),
		Time:          a.Time,
		Code:          a.Code,
		AssignedVetID: a.AssignedVetID,
		VetUsername:   a.VetUsername,
		VetKey:        strings.ToLower(strings.TrimSpace(a.VetUsername)),
		Status:        string(a.Status),
		CompletedAt:   nullDate(a.CompletedAt),
		CreatedAt:     formatTS(a.CreatedAt),
		UpdatedAt:     formatTS(a.UpdatedAt),
	}
}

func fromAppointmentRow(row appointmentRow) (appointments.Appointment, error) {
	a := appointments.Appointment{
		ID:            row.ID,
		PetID:         row.PetID,
		Owner:         row.Owner,
		Time:          row.Time,
		Code:          row.Code,
		AssignedVetID: row.AssignedVetID,
		VetUsername:   row.VetUsername,
		Status:        appointments.Status(row.Status),
	}

	var err error
	if a.Date, err = parseDate(row.Date); err != nil {
		return appointments.Appointment{}, err
	}
	if a.CompletedAt, err = parseNullDate(row.CompletedAt); err != nil {
		return appointments.Appointment{}, err
	}
	if a.CreatedAt, err = parseTS(row.CreatedAt); err != nil {
		return appointments.Appointment{}, err
	}
	if a.UpdatedAt, err = parseTS(row.UpdatedAt); err != nil {
		return appointments.Appointment{}, err
	}
	return a, nil
}
