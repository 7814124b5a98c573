package db

import (
	"database/sql"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemas embed.FS

// Migrate creates the key-value table for the given driver if missing.
func Migrate(db *sql.DB, driver string) error {
	name := "schema/sqlite.sql"
	if driver == DriverPostgres {
		name = "schema/postgres.sql"
	}
	b, err := schemas.ReadFile(name)
	if err != nil {
		return err
	}
	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("db: migrate %s: %w", driver, err)
	}
	return nil
}
