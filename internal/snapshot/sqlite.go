package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// ErrExists is returned by CreateSQLite when the target file already exists.
var ErrExists = errors.New("snapshot file already exists")

// SQLite is a Source and Sink backed by one SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLiteReadOnly opens an existing SQLite file for reading.
func OpenSQLiteReadOnly(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return openSQLite("file:" + path + "?mode=ro")
}

// CreateSQLite creates a brand new, empty SQLite file at path and opens it
// for writing. It fails with ErrExists rather than touching an existing file.
func CreateSQLite(path string) (*SQLite, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrExists
		}
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return openSQLite(path)
}

func openSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps the copy strictly sequential
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ListTables returns user tables, skipping sqlite_* internals.
func (s *SQLite) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeColumns reads PRAGMA table_xinfo for table. Generated and hidden
// columns are left out: their values are derived, never inserted.
func (s *SQLite) DescribeColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_xinfo("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    sql.NullString
			hidden  int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &col.PrimaryKey, &hidden); err != nil {
			return nil, err
		}
		if hidden != 0 {
			continue
		}
		col.NotNull = notNull != 0
		if dflt.Valid {
			v := dflt.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// StreamRows calls fn for every row of table in storage order.
func (s *SQLite) StreamRows(ctx context.Context, table string, columns []Column, fn func(Row) error) error {
	// Unary plus is a no-op on every storage class but strips the declared
	// type, so the driver hands back raw values instead of parsing
	// DATETIME or BOOLEAN columns into Go types.
	exprs := make([]string, len(columns))
	for i, c := range columns {
		exprs[i] = "+" + quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), quoteIdent(table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		row := make(Row, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CreateTable issues CREATE TABLE with the given column definitions.
func (s *SQLite) CreateTable(ctx context.Context, table string, columns []Column) error {
	_, err := s.db.ExecContext(ctx, createTableSQL(table, columns))
	return err
}

// BeginTable opens a transaction with a prepared insert for table.
func (s *SQLite) BeginTable(ctx context.Context, table string, columns []Column) (TableWriter, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return &sqliteTableWriter{tx: tx, stmt: stmt}, nil
}

type sqliteTableWriter struct {
	tx   *sql.Tx
	stmt *sql.Stmt
}

func (w *sqliteTableWriter) Insert(ctx context.Context, row Row) error {
	_, err := w.stmt.ExecContext(ctx, row...)
	return err
}

func (w *sqliteTableWriter) Commit() error {
	_ = w.stmt.Close()
	return w.tx.Commit()
}

func (w *sqliteTableWriter) Rollback() error {
	_ = w.stmt.Close()
	return w.tx.Rollback()
}

func createTableSQL(table string, columns []Column) string {
	defs := make([]string, 0, len(columns)+1)
	pk := make([]Column, 0)

	for _, c := range columns {
		def := quoteIdent(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		// table_xinfo drops the parentheses around expression defaults,
		// and a bare expression such as datetime('now') is not valid DDL.
		if c.Default != nil {
			def += " DEFAULT (" + *c.Default + ")"
		}
		defs = append(defs, def)
		if c.PrimaryKey > 0 {
			pk = append(pk, c)
		}
	}

	if len(pk) > 0 {
		ordered := make([]string, len(pk))
		for _, c := range pk {
			if c.PrimaryKey <= len(ordered) {
				ordered[c.PrimaryKey-1] = quoteIdent(c.Name)
			}
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(ordered, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

func insertSQL(table string, columns []Column) string {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
