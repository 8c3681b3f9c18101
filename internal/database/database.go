// Package database provides SQLite database access and migration management.
package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotReopenable is returned by Reopen for handles created with Wrap.
var ErrNotReopenable = errors.New("database handle has no backing path")

// DB holds a swappable connection pool. The live store file is replaced
// wholesale during a restore, so the pool must be reopened afterwards.
type DB struct {
	pool    atomic.Pointer[sql.DB]
	path    string
	mu      sync.Mutex
	migrate func(*sql.DB) error
}

// New creates a new database connection and ensures the parent directory exists.
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, err
		}
	}

	sqlDB, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{path: dbPath}
	db.pool.Store(sqlDB)
	return db, nil
}

// Wrap adapts an existing *sql.DB. The result cannot be reopened.
func Wrap(sqlDB *sql.DB) *DB {
	db := &DB{}
	db.pool.Store(sqlDB)
	return db
}

func open(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Path returns the file backing this handle, or "" for wrapped handles.
func (db *DB) Path() string { return db.path }

// SQL returns the current pool.
func (db *DB) SQL() *sql.DB { return db.pool.Load() }

func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.SQL().Exec(query, args...)
}

func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.SQL().Query(query, args...)
}

func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.SQL().QueryRow(query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.SQL().ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.SQL().QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.SQL().QueryRowContext(ctx, query, args...)
}

func (db *DB) Ping() error { return db.SQL().Ping() }

func (db *DB) Close() error { return db.SQL().Close() }

// Reopen opens a fresh pool on the same path, re-applies migrations when
// they were run before, and closes the previous pool.
func (db *DB) Reopen() error {
	if db.path == "" {
		return ErrNotReopenable
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	fresh, err := open(db.path)
	if err != nil {
		return err
	}
	if db.migrate != nil {
		if err := db.migrate(fresh); err != nil {
			_ = fresh.Close()
			return err
		}
	}

	old := db.pool.Swap(fresh)
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Migrate runs the live store migrations.
func (db *DB) Migrate() error {
	return db.runAndRemember(runMigrations)
}

// MigrateCatalog runs the backup catalog migrations.
func (db *DB) MigrateCatalog() error {
	return db.runAndRemember(runCatalogMigrations)
}

func (db *DB) runAndRemember(fn func(*sql.DB) error) error {
	if err := fn(db.SQL()); err != nil {
		return err
	}
	db.mu.Lock()
	db.migrate = fn
	db.mu.Unlock()
	return nil
}

// OpenCatalog opens and migrates the backup catalog at path.
func OpenCatalog(path string) (*DB, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateCatalog(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
