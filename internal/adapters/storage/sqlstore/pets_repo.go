package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinic-records/internal/domain/pets"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PetsRepo struct {
	db *sqlx.DB
}

func NewPetsRepo(db *sqlx.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

type petRow struct {
	ID         string        `db:"id"`
	Name       string        `db:"name"`
	Species    string        `db:"species"`
	Breed      string        `db:"breed"`
	Gender     string        `db:"gender"`
	Age        sql.NullInt64 `db:"age"`
	Microchip  string        `db:"microchip"`
	Owner      string        `db:"owner"`
	Address    string        `db:"address"`
	Federation string        `db:"federation"`
	Photo      string        `db:"photo"`
	CreatedAt  string        `db:"created_at"`
	UpdatedAt  string        `db:"updated_at"`
}

type procedureRow struct {
	PetID       string              `db:"pet_id"`
	Seq         int                 `db:"seq"`
	ID          string              `db:"id"`
	Date        string              `db:"proc_date"`
	Name        string              `db:"name"`
	Code        string              `db:"code"`
	Category    string              `db:"category"`
	LabType     string              `db:"lab_type"`
	Notes       string              `db:"notes"`
	Vet         string              `db:"vet"`
	Medications string              `db:"medications"`
	Dosage      string              `db:"dosage"`
	Directions  string              `db:"directions"`
	Cost        decimal.NullDecimal `db:"cost"`
}

const petColumns = `id, name, species, breed, gender, age, microchip, owner, address, federation, photo, created_at, updated_at`

const procedureColumns = `pet_id, seq, id, proc_date, name, code, category, lab_type, notes, vet, medications, dosage, directions, cost`

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO pets (`+petColumns+`)
			VALUES (:id, :name, :species, :breed, :gender, :age, :microchip, :owner, :address, :federation, :photo, :created_at, :updated_at)
		`, toPetRow(p)); err != nil {
			return err
		}
		return insertProcedures(ctx, tx, p)
	})
}

func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE pets SET
				name = :name, species = :species, breed = :breed, gender = :gender,
				age = :age, microchip = :microchip, owner = :owner, address = :address,
				federation = :federation, photo = :photo, updated_at = :updated_at
			WHERE id = :id
		`, toPetRow(p))
		if err != nil {
			return err
		}
		if err := expectAffected(res, pets.ErrNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pet_procedures WHERE pet_id = ?`), p.ID); err != nil {
			return err
		}
		return insertProcedures(ctx, tx, p)
	})
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	var row petRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+petColumns+` FROM pets WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return pets.Pet{}, pets.ErrNotFound
	}
	if err != nil {
		return pets.Pet{}, err
	}

	var procs []procedureRow
	if err := r.db.SelectContext(ctx, &procs, r.db.Rebind(`
		SELECT `+procedureColumns+` FROM pet_procedures WHERE pet_id = ? ORDER BY seq
	`), id); err != nil {
		return pets.Pet{}, err
	}

	return fromPetRow(row, procs)
}

func (r *PetsRepo) List(ctx context.Context) ([]pets.Pet, error) {
	var rows []petRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+petColumns+` FROM pets ORDER BY created_at, id`); err != nil {
		return nil, err
	}

	var procs []procedureRow
	if err := r.db.SelectContext(ctx, &procs, `SELECT `+procedureColumns+` FROM pet_procedures ORDER BY pet_id, seq`); err != nil {
		return nil, err
	}
	byPet := make(map[string][]procedureRow, len(rows))
	for _, pr := range procs {
		byPet[pr.PetID] = append(byPet[pr.PetID], pr)
	}

	out := make([]pets.Pet, 0, len(rows))
	for _, row := range rows {
		p, err := fromPetRow(row, byPet[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pet_procedures WHERE pet_id = ?`), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pets WHERE id = ?`), id)
		if err != nil {
			return err
		}
		return expectAffected(res, pets.ErrNotFound)
	})
}

func (r *PetsRepo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertProcedures(ctx context.Context, tx *sqlx.Tx, p pets.Pet) error {
	for i, pr := range p.Procedures {
		row := procedureRow{
			PetID:       p.ID,
			Seq:         i,
			ID:          pr.ID,
			Date:        formatDate(pr.Date),
			Name:        pr.Name,
			Code:        pr.Code,
			Category:    pr.Category,
			LabType:     pr.LabType,
			Notes:       pr.Notes,
			Vet:         pr.Vet,
			Medications: pr.Medications,
			Dosage:      pr.Dosage,
			Directions:  pr.Directions,
			Cost:        pr.Cost,
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO pet_procedures (`+procedureColumns+`)
			VALUES (:pet_id, :seq, :id, :proc_date, :name, :code, :category, :lab_type, :notes, :vet, :medications, :dosage, :directions, :cost)
		`, row); err != nil {
			return fmt.Errorf("insert procedure %d: %w", i, err)
		}
	}
	return nil
}

func toPetRow(p pets.Pet) petRow {
	row := petRow{
		ID:         p.ID,
		Name:       p.Name,
		Species:    p.Species,
		Breed:      p.Breed,
		Gender:     p.Gender,
		Microchip:  p.Microchip,
		Owner:      p.Owner,
		Address:    p.Address,
		Federation: p.Federation,
		Photo:      p.Photo,
		CreatedAt:  formatTS(p.CreatedAt),
		UpdatedAt:  formatTS(p.UpdatedAt),
	}
	if p.Age != nil {
		row.Age = sql.NullInt64{Int64: int64(*p.Age), Valid: true}
	}
	return row
}

func fromPetRow(row petRow, procs []procedureRow) (pets.Pet, error) {
	p := pets.Pet{
		ID:         row.ID,
		Name:       row.Name,
		Species:    row.Species,
		Breed:      row.Breed,
		Gender:     row.Gender,
		Microchip:  row.Microchip,
		Owner:      row.Owner,
		Address:    row.Address,
		Federation: row.Federation,
		Photo:      row.Photo,
		Procedures: make([]pets.Procedure, 0, len(procs)),
	}
	if row.Age.Valid {
		age := int(row.Age.Int64)
		p.Age = &age
	}

	var err error
	if p.CreatedAt, err = parseTS(row.CreatedAt); err != nil {
		return pets.Pet{}, err
	}
	if p.UpdatedAt, err = parseTS(row.UpdatedAt); err != nil {
		return pets.Pet{}, err
	}

	for _, pr := range procs {
		d, err := parseDate(pr.Date)
		if err != nil {
			return pets.Pet{}, err
		}
		p.Procedures = append(p.Procedures, pets.Procedure{
			ID:          pr.ID,
			Date:        d,
			Name:        pr.Name,
			Code:        pr.Code,
			Category:    pr.Category,
			LabType:     pr.LabType,
			Notes:       pr.Notes,
			Vet:         pr.Vet,
			Medications: pr.Medications,
			Dosage:      pr.Dosage,
			Directions:  pr.Directions,
			Cost:        pr.Cost,
		})
	}
	return p, nil
}
