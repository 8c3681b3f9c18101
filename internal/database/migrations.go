package database

import (
	"database/sql"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS system_settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		whatsapp_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		whatsapp_api_token TEXT NOT NULL DEFAULT '',
		whatsapp_sender TEXT NOT NULL DEFAULT '',
		auto_backup_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		backup_schedule TEXT NOT NULL DEFAULT 'daily',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS schools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		address TEXT,
		phone TEXT,
		email TEXT,
		website TEXT,
		logo TEXT,
		principal TEXT,
		motto TEXT,
		vision TEXT,
		mission TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT,
		ip_address TEXT,
		user_agent TEXT,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_schools_name ON schools(name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action)`,
}

var catalogMigrations = []string{
	`CREATE TABLE IF NOT EXISTS backup_records (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		backup_type TEXT NOT NULL DEFAULT 'manual',
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_backup_records_created_at ON backup_records(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_backup_records_status ON backup_records(status)`,
}

func runMigrations(db *sql.DB) error {
	return apply(db, migrations)
}

func runCatalogMigrations(db *sql.DB) error {
	return apply(db, catalogMigrations)
}

func apply(db *sql.DB, stmts []string) error {
	for _, migration := range stmts {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
