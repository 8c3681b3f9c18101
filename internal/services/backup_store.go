package services

import (
	"context"
	"database/sql"

	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/models"
)

// BackupStore persists BackupRecords in the backup catalog.
type BackupStore struct {
	db *database.DB
}

// NewBackupStore creates a new BackupStore on an opened catalog.
func NewBackupStore(db *database.DB) *BackupStore {
	return &BackupStore{db: db}
}

// Create inserts a new record.
func (s *BackupStore) Create(ctx context.Context, rec *models.BackupRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backup_records (id, filename, file_path, file_size, backup_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.FilePath, rec.FileSize, string(rec.BackupType), string(rec.Status), rec.CreatedAt,
	)
	return err
}

// Get returns the record with id or ErrBackupNotFound.
func (s *BackupStore) Get(ctx context.Context, id string) (*models.BackupRecord, error) {
	var rec models.BackupRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_path, file_size, backup_type, status, created_at
		FROM backup_records WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Filename, &rec.FilePath, &rec.FileSize, &rec.BackupType, &rec.Status, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns records newest first. An empty status returns every record.
func (s *BackupStore) List(ctx context.Context, status models.BackupStatus) ([]models.BackupRecord, error) {
	query := `SELECT id, filename, file_path, file_size, backup_type, status, created_at FROM backup_records`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]models.BackupRecord, 0)
	for rows.Next() {
		var rec models.BackupRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.FilePath, &rec.FileSize, &rec.BackupType, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
