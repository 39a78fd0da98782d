package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func dialectOf(db *sqlx.DB) dialect {
	switch db.DriverName() {
	case "pgx", "pgx/v5", "postgres":
		return dialectPostgres
	default:
		return dialectSQLite
	}
}

// Fechas calendario van como TEXT YYYY-MM-DD y timestamps como TEXT UTC
// de ancho fijo, así ordenan igual en los dos motores.
func schema(d dialect) []string {
	boolType, moneyType := "INTEGER", "TEXT"
	if d == dialectPostgres {
		boolType, moneyType = "BOOLEAN", "NUMERIC(12,2)"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			username_key  TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			active        ` + boolType + ` NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pets (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			species    TEXT NOT NULL DEFAULT '',
			breed      TEXT NOT NULL DEFAULT '',
			gender     TEXT NOT NULL DEFAULT '',
			age        INTEGER NULL,
			microchip  TEXT NOT NULL DEFAULT '',
			owner      TEXT NOT NULL DEFAULT '',
			address    TEXT NOT NULL DEFAULT '',
			federation TEXT NOT NULL DEFAULT '',
			photo      TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pet_procedures (
			pet_id      TEXT NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			id          TEXT NOT NULL,
			proc_date   TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL DEFAULT '',
			code        TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			lab_type    TEXT NOT NULL DEFAULT '',
			notes       TEXT NOT NULL DEFAULT '',
			vet         TEXT NOT NULL DEFAULT '',
			medications TEXT NOT NULL DEFAULT '',
			dosage      TEXT NOT NULL DEFAULT '',
			directions  TEXT NOT NULL DEFAULT '',
			cost        ` + moneyType + ` NULL,
			PRIMARY KEY (pet_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id              TEXT PRIMARY KEY,
			pet_id          TEXT NOT NULL DEFAULT '',
			owner           TEXT NOT NULL,
			appt_date       TEXT NOT NULL,
			appt_time       TEXT NOT NULL,
			code            TEXT NOT NULL,
			assigned_vet_id TEXT NOT NULL DEFAULT '',
			vet_username    TEXT NOT NULL DEFAULT '',
			vet_key         TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			completed_at    TEXT NULL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		// citas sin vet no ocupan slot
		`CREATE UNIQUE INDEX IF NOT EXISTS appointments_slot_uq
			ON appointments (appt_date, appt_time, vet_key) WHERE vet_key <> ''`,
		`CREATE TABLE IF NOT EXISTS prescriptions (
			id             TEXT PRIMARY KEY,
			pet_id         TEXT NOT NULL,
			pet_name       TEXT NOT NULL DEFAULT '',
			owner          TEXT NOT NULL DEFAULT '',
			drug           TEXT NOT NULL,
			dosage         TEXT NOT NULL DEFAULT '',
			directions     TEXT NOT NULL DEFAULT '',
			prescriber     TEXT NOT NULL DEFAULT '',
			rx_date        TEXT NOT NULL,
			dispensed      ` + boolType + ` NOT NULL,
			dispensed_at   TEXT NULL,
			appointment_id TEXT NOT NULL DEFAULT '',
			vet_id         TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS oplog (
			id      TEXT PRIMARY KEY,
			ts      TEXT NOT NULL,
			day     TEXT NOT NULL,
			type    TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			pet_id  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS oplog_day_idx ON oplog (day, ts)`,
	}
}

// Migrate crea las tablas que falten. Es idempotente.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema(dialectOf(db)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
