package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"clinic-records/internal/domain/prescriptions"

	"github.com/jmoiron/sqlx"
)

type PrescriptionsRepo struct {
	db *sqlx.DB
}

func NewPrescriptionsRepo(db *sqlx.DB) *PrescriptionsRepo {
	return &PrescriptionsRepo{db: db}
}

type prescriptionRow struct {
	ID            string         `db:"id"`
	PetID         string         `db:"pet_id"`
	PetName       string         `db:"pet_name"`
	Owner         string         `db:"owner"`
	Drug          string         `db:"drug"`
	Dosage        string         `db:"dosage"`
	Directions    string         `db:"directions"`
	Prescriber    string         `db:"prescriber"`
	Date          string         `db:"rx_date"`
	Dispensed     bool           `db:"dispensed"`
	DispensedAt   sql.NullString `db:"dispensed_at"`
	AppointmentID string         `db:"appointment_id"`
	VetID         string         `db:"vet_id"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

const prescriptionColumns = `id, pet_id, pet_name, owner, drug, dosage, directions, prescriber, rx_date, dispensed, dispensed_at, appointment_id, vet_id, created_at, updated_at`

func (r *PrescriptionsRepo) Create(ctx context.Context, p prescriptions.Prescription) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO prescriptions (`+prescriptionColumns+`)
		VALUES (:id, :pet_id, :pet_name, :owner, :drug, :dosage, :directions, :prescriber, :rx_date, :dispensed, :dispensed_at, :appointment_id, :vet_id, :created_at, :updated_at)
	`, toPrescriptionRow(p))
	return err
}

func (r *PrescriptionsRepo) Update(ctx context.Context, p prescriptions.Prescription) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE prescriptions SET
			pet_id = :pet_id, pet_name = :pet_name, owner = :owner, drug = :drug,
			dosage = :dosage, directions = :directions, prescriber = :prescriber,
			rx_date = :rx_date, dispensed = :dispensed, dispensed_at = :dispensed_at,
			appointment_id = :appointment_id, vet_id = :vet_id, updated_at = :updated_at
		WHERE id = :id
	`, toPrescriptionRow(p))
	if err != nil {
		return err
	}
	return expectAffected(res, prescriptions.ErrNotFound)
}

func (r *PrescriptionsRepo) GetByID(ctx context.Context, id string) (prescriptions.Prescription, error) {
	var row prescriptionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return prescriptions.Prescription{}, prescriptions.ErrNotFound
	}
	if err != nil {
		return prescriptions.Prescription{}, err
	}
	return fromPrescriptionRow(row)
}

func (r *PrescriptionsRepo) List(ctx context.Context) ([]prescriptions.Prescription, error) {
	var rows []prescriptionRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+prescriptionColumns+` FROM prescriptions ORDER BY rx_date DESC, created_at DESC
	`); err != nil {
		return nil, err
	}

	out := make([]prescriptions.Prescription, 0, len(rows))
	for _, row := range rows {
		p, err := fromPrescriptionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PrescriptionsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM prescriptions WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectAffected(res, prescriptions.ErrNotFound)
}

func toPrescriptionRow(p prescriptions.Prescription) prescriptionRow {
	return prescriptionRow{
		ID:            p.ID,
		PetID:         p.PetID,
		PetName:       p.PetName,
		Owner:         p.Owner,
		Drug:          p.Drug,
		Dosage:        p.Dosage,
		Directions:    p.Directions,
		Prescriber:    p.Prescriber,
		Date:          formatDate(p.Date),
		Dispensed:     p.Dispensed,
		DispensedAt:   nullDate(p.DispensedAt),
		AppointmentID: p.AppointmentID,
		VetID:         p.VetID,
		CreatedAt:     formatTS(p.CreatedAt),
		UpdatedAt:     formatTS(p.UpdatedAt),
	}
}

func fromPrescriptionRow(row prescriptionRow) (prescriptions.Prescription, error) {
	p := prescriptions.Prescription{
		ID:            row.ID,
		PetID:         row.PetID,
		PetName:       row.PetName,
		Owner:         row.Owner,
		Drug:          row.Drug,
		Dosage:        row.Dosage,
		Directions:    row.Directions,
		Prescriber:    row.Prescriber,
		Dispensed:     row.Dispensed,
		AppointmentID: row.AppointmentID,
		VetID:         row.VetID,
	}

	var err error
	if p.Date, err = parseDate(row.Date); err != nil {
		return prescriptions.Prescription{}, err
	}
	if p.DispensedAt, err = parseNullDate(row.DispensedAt); err != nil {
		return prescriptions.Prescription{}, err
	}
	if p.CreatedAt, err = parseTS(row.CreatedAt); err != nil {
		return prescriptions.Prescription{}, err
	}
	if p.UpdatedAt, err = parseTS(row.UpdatedAt); err != nil {
		return prescriptions.Prescription{}, err
	}
	return p, nil
}
