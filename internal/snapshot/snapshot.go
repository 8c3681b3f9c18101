// Package snapshot copies the structure and rows of every table from one
// relational store into another. The copy only talks to the Source and Sink
// interfaces; SQLite implementations live in sqlite.go.
package snapshot

import (
	"context"
	"fmt"
)

// Column describes one column of a table as reported by the source catalog.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey int // 1-based position in the primary key, 0 when not part of it
}

// Row holds column values in the order of the Column slice it was read with.
type Row []interface{}

// Source enumerates tables and streams their rows.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeColumns(ctx context.Context, table string) ([]Column, error)
	StreamRows(ctx context.Context, table string, columns []Column, fn func(Row) error) error
}

// Sink receives tables and rows.
type Sink interface {
	CreateTable(ctx context.Context, table string, columns []Column) error
	BeginTable(ctx context.Context, table string, columns []Column) (TableWriter, error)
}

// TableWriter inserts rows into one table.
type TableWriter interface {
	Insert(ctx context.Context, row Row) error
	Commit() error
	Rollback() error
}

// Stats summarises a finished copy.
type Stats struct {
	Tables int
	Rows   int64
}

// TableError reports which table a copy failed on.
type TableError struct {
	Table string
	Op    string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s table %q: %v", e.Op, e.Table, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// Copy recreates every table of src in dst and copies all rows, one table
// at a time in catalog order. The first error stops the copy.
func Copy(ctx context.Context, src Source, dst Sink) (Stats, error) {
	var stats Stats

	tables, err := src.ListTables(ctx)
	if err != nil {
		return stats, fmt.Errorf("list tables: %w", err)
	}

	for _, table := range tables {
		n, err := CopyTable(ctx, src, dst, table)
		stats.Rows += n
		if err != nil {
			return stats, err
		}
		stats.Tables++
	}

	return stats, nil
}

// CopyTable copies a single table and returns the number of rows written.
func CopyTable(ctx context.Context, src Source, dst Sink, table string) (int64, error) {
	columns, err := src.DescribeColumns(ctx, table)
	if err != nil {
		return 0, &TableError{Table: table, Op: "describe", Err: err}
	}
	if len(columns) == 0 {
		return 0, &TableError{Table: table, Op: "describe", Err: fmt.Errorf("no columns")}
	}

	if err := dst.CreateTable(ctx, table, columns); err != nil {
		return 0, &TableError{Table: table, Op: "create", Err: err}
	}

	w, err := dst.BeginTable(ctx, table, columns)
	if err != nil {
		return 0, &TableError{Table: table, Op: "begin", Err: err}
	}

	var n int64
	err = src.StreamRows(ctx, table, columns, func(row Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Insert(ctx, row); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		_ = w.Rollback()
		return 0, &TableError{Table: table, Op: "copy", Err: err}
	}

	if err := w.Commit(); err != nil {
		return 0, &TableError{Table: table, Op: "commit", Err: err}
	}
	return n, nil
}
