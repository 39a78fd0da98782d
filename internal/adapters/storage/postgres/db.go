package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DriverName es el nombre con el que pgx se registra en database/sql;
// sqlx lo usa para elegir placeholders $N.
const DriverName = "pgx"

// Open abre una conexión pool a Postgres usando pgx (database/sql) y la
// envuelve en sqlx. El DSN se valida antes de tocar la red.
func Open(dsn string) (*sqlx.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	connCfg.RuntimeParams["application_name"] = "clinic-records"
	// los timestamps viajan como texto UTC
	connCfg.RuntimeParams["timezone"] = "UTC"

	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), DriverName)

	// defaults razonables para MVP (ajustable luego)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s/%s: %w", connCfg.Host, connCfg.Database, err)
	}

	return db, nil
}
