package main

import (
	"database/sql"
	"fmt"
)

const dbSchemaVersion = 1

func dbInit(db *sql.DB) error {
	var dbVersion int
	err := db.QueryRow("SELECT version FROM db_version WHERE name='gcalctl'").Scan(&dbVersion)
	if err != nil {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`)
		if err != nil {
			return fmt.Errorf("creating db_version table: %w", err)
		}
		_, err = db.Exec(`INSERT OR IGNORE INTO db_version (name, version) VALUES ('gcalctl', 0)`)
		if err != nil {
			return fmt.Errorf("initializing db_version table: %w", err)
		}
		dbVersion = 0
	}

	if dbVersion == 0 {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		account_name TEXT PRIMARY KEY,
		token TEXT)`)
		if err != nil {
			return fmt.Errorf("creating tokens table: %w", err)
		}

		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS calendar_aliases (
		alias TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL)`)
		if err != nil {
			return fmt.Errorf("creating calendar_aliases table: %w", err)
		}

		dbVersion = dbSchemaVersion
		_, err = db.Exec(`UPDATE db_version SET version = ? WHERE name = 'gcalctl'`, dbVersion)
		if err != nil {
			return fmt.Errorf("updating db_version table: %w", err)
		}
	}
	return nil
}
