package database

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name=?
	`, table).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query table %s: %v", table, err)
	}
	return count == 1
}

func TestRunMigrations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := runMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, table := range []string{"system_settings", "schools", "audit_logs"} {
		if !tableExists(t, db, table) {
			t.Errorf("expected table %s to exist", table)
		}
	}

	if tableExists(t, db, "backup_records") {
		t.Error("backup_records belongs to the catalog, not the live store")
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := runMigrations(db); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO schools (id, name) VALUES ('s-1', 'SMA Negeri 1')`)
	if err != nil {
		t.Fatalf("failed to insert school: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var name string
	if err := db.QueryRow(`SELECT name FROM schools WHERE id = 's-1'`).Scan(&name); err != nil {
		t.Fatalf("failed to query school: %v", err)
	}
	if name != "SMA Negeri 1" {
		t.Errorf("expected data to survive re-migration, got %q", name)
	}
}

func TestRunCatalogMigrations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := runCatalogMigrations(db); err != nil {
		t.Fatalf("failed to run catalog migrations: %v", err)
	}

	if !tableExists(t, db, "backup_records") {
		t.Error("expected backup_records table")
	}

	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_backup_records_created_at'
	`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check index: %v", err)
	}
	if count != 1 {
		t.Error("idx_backup_records_created_at index should exist")
	}
}

func TestSystemSettingsDefaults(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := runMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO system_settings DEFAULT VALUES`); err != nil {
		t.Fatalf("failed to insert default settings: %v", err)
	}

	var enabled bool
	var schedule string
	err := db.QueryRow(`SELECT auto_backup_enabled, backup_schedule FROM system_settings`).Scan(&enabled, &schedule)
	if err != nil {
		t.Fatalf("failed to read settings: %v", err)
	}
	if enabled {
		t.Error("expected auto backup to default to false")
	}
	if schedule != "daily" {
		t.Errorf("expected schedule 'daily', got %q", schedule)
	}
}
