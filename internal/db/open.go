package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Open opens the database and applies the per-driver connection settings.
func Open(driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// One writer; every key write is its own statement.
		db.SetMaxOpenConns(1)
		_, _ = db.Exec(`PRAGMA journal_mode=WAL;`)
		_, _ = db.Exec(`PRAGMA busy_timeout=3000;`)
		_, _ = db.Exec(`PRAGMA synchronous=NORMAL;`)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: ping %s: %w", driver, err)
	}
	return db, nil
}
