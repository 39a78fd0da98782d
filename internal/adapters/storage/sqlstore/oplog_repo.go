package sqlstore

import (
	"context"
	"time"

	"clinic-records/internal/domain/oplog"

	"github.com/jmoiron/sqlx"
)

// OplogRepo es append-only: no hay UPDATE ni DELETE.
type OplogRepo struct {
	db *sqlx.DB
}

func NewOplogRepo(db *sqlx.DB) *OplogRepo {
	return &OplogRepo{db: db}
}

type oplogRow struct {
	ID      string `db:"id"`
	TS      string `db:"ts"`
	Day     string `db:"day"`
	Type    string `db:"type"`
	Message string `db:"message"`
	PetID   string `db:"pet_id"`
}

func (r *OplogRepo) Append(ctx context.Context, e oplog.Entry) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO oplog (id, ts, day, type, message, pet_id)
		VALUES (:id, :ts, :day, :type, :message, :pet_id)
	`, oplogRow{
		ID:      e.ID,
		TS:      formatTS(e.TS),
		Day:     formatDate(e.TS),
		Type:    string(e.Type),
		Message: e.Message,
		PetID:   e.PetID,
	})
	return err
}

func (r *OplogRepo) ListBetween(ctx context.Context, from, to time.Time) ([]oplog.Entry, error) {
	var rows []oplogRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, ts, day, type, message, pet_id
		FROM oplog
		WHERE day >= ? AND day <= ?
		ORDER BY ts, id
	`), formatDate(from), formatDate(to)); err != nil {
		return nil, err
	}

	out := make([]oplog.Entry, 0, len(rows))
	for _, row := range rows {
		ts, err := parseTS(row.TS)
		if err != nil {
			return nil, err
		}
		out = append(out, oplog.Entry{
			ID:      row.ID,
			TS:      ts,
			Type:    oplog.EventType(row.Type),
			Message: row.Message,
			PetID:   row.PetID,
		})
	}
	return out, nil
}
