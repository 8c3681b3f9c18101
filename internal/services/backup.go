package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/config"
	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/snapshot"
)

// safetyCopyName is the side file holding the live store during a restore.
const safetyCopyName = "temp-before-restore.db"

var (
	// ErrConfigMissing indicates no live store path is configured.
	ErrConfigMissing = errors.New("DATABASE_URL environment variable is not set")
	// ErrSourceNotFound indicates the live store file does not exist.
	ErrSourceNotFound = errors.New("source database file not found")
	// ErrBackupIDRequired indicates a request without a backup id.
	ErrBackupIDRequired = errors.New("backup id is required")
	// ErrBackupNotFound indicates no record has the requested id.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrBackupFileMissing indicates the record exists but its file is gone.
	ErrBackupFileMissing = errors.New("backup file not found")
	// ErrBackupNotCompleted indicates an operation on a failed backup.
	ErrBackupNotCompleted = errors.New("backup is not completed")
	// ErrBackupEmpty indicates a zero-byte backup file.
	ErrBackupEmpty = errors.New("backup file is empty")
	// ErrBackupFailed wraps any failure while writing a snapshot.
	ErrBackupFailed = errors.New("failed to create backup file")
	// ErrRestoreFailed wraps any failure while rewriting the live store.
	ErrRestoreFailed = errors.New("failed to restore database")
	// ErrOperationInProgress indicates another backup or restore holds the lock.
	ErrOperationInProgress = errors.New("another backup or restore is in progress")
)

// NotCompletedError carries the status of a backup that cannot be served.
type NotCompletedError struct {
	Status models.BackupStatus
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("backup is not completed yet, status: %s", e.Status)
}

// Is makes errors.Is(err, ErrBackupNotCompleted) match.
func (e *NotCompletedError) Is(target error) bool {
	return target == ErrBackupNotCompleted
}

// LiveStore is the application's own handle on the live store. It is
// reopened once the file has been replaced.
type LiveStore interface {
	Reopen() error
}

// BackupMirror receives a copy of every completed backup.
type BackupMirror interface {
	Upload(ctx context.Context, filename, path string) error
}

// BackupService creates, lists, serves and restores SQLite snapshots of the
// live store.
type BackupService struct {
	store    *BackupStore
	log      logrus.FieldLogger
	live     LiveStore
	mirror   BackupMirror
	now      func() time.Time
	livePath string
	cfg      config.BackupConfig
}

// NewBackupService creates a new BackupService. The live store path comes
// from cfg.Database; an empty path makes every operation fail with
// ErrConfigMissing.
func NewBackupService(store *BackupStore, cfg *config.Config, log logrus.FieldLogger) *BackupService {
	return &BackupService{
		store:    store,
		cfg:      cfg.Backup,
		livePath: cfg.Database.Path(),
		log:      log.WithField("component", "backup"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetLiveStore registers the handle to reopen after a restore.
func (s *BackupService) SetLiveStore(live LiveStore) {
	s.live = live
}

// SetMirror registers an offsite destination for completed backups.
func (s *BackupService) SetMirror(mirror BackupMirror) {
	s.mirror = mirror
}

// CreateBackup snapshots the live store into a new file under the backup
// directory and records the outcome.
func (s *BackupService) CreateBackup(ctx context.Context, backupType models.BackupType) (*models.BackupRecord, error) {
	if s.livePath == "" {
		return nil, ErrConfigMissing
	}

	release, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer release()

	dir, err := filepath.Abs(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	now := s.now()
	filename := backupFilename(now)
	rec := &models.BackupRecord{
		ID:         uuid.New().String(),
		Filename:   filename,
		FilePath:   filepath.Join(dir, filename),
		BackupType: backupType,
		CreatedAt:  now,
	}

	if !fileExists(s.livePath) {
		return nil, ErrSourceNotFound
	}

	log := s.log.WithFields(logrus.Fields{"backup_id": rec.ID, "file": rec.FilePath})

	stats, err := copyStore(ctx, s.livePath, rec.FilePath)
	if err == nil {
		rec.FileSize, err = statSize(rec.FilePath)
	}
	if err == nil && rec.FileSize == 0 {
		err = ErrBackupEmpty
	}

	if err != nil {
		log.WithError(err).Error("backup execution failed")

		rec.Status = models.BackupStatusFailed
		rec.FileSize = 0
		if recErr := s.store.Create(context.WithoutCancel(ctx), rec); recErr != nil {
			log.WithError(recErr).Error("failed to record failed backup")
		}
		return nil, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	rec.Status = models.BackupStatusCompleted
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}

	log.WithFields(logrus.Fields{
		"tables": stats.Tables,
		"rows":   stats.Rows,
		"size":   rec.FileSize,
		"type":   rec.BackupType,
	}).Info("backup created")

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, rec.Filename, rec.FilePath); err != nil {
			log.WithError(err).Warn("offsite upload failed")
		}
	}

	return rec, nil
}

// ListBackups returns every record, newest first, with FileExists computed now.
func (s *BackupService) ListBackups(ctx context.Context) ([]models.BackupListItem, error) {
	records, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	items := make([]models.BackupListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, models.BackupListItem{
			BackupRecord: rec,
			FileExists:   fileExists(rec.FilePath),
		})
	}
	return items, nil
}

// ListRestoreCandidates returns completed backups whose files still exist,
// newest first.
func (s *BackupService) ListRestoreCandidates(ctx context.Context) ([]models.BackupListItem, error) {
	records, err := s.store.List(ctx, models.BackupStatusCompleted)
	if err != nil {
		return nil, err
	}

	items := make([]models.BackupListItem, 0, len(records))
	for _, rec := range records {
		if !fileExists(rec.FilePath) {
			continue
		}
		items = append(items, models.BackupListItem{BackupRecord: rec, FileExists: true})
	}
	return items, nil
}

// DownloadBackup returns the record and the full contents of its file.
func (s *BackupService) DownloadBackup(ctx context.Context, id string) (*models.BackupRecord, []byte, error) {
	if id == "" {
		return nil, nil, ErrBackupIDRequired
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !fileExists(rec.FilePath) {
		return nil, nil, ErrBackupFileMissing
	}

	if rec.Status != models.BackupStatusCompleted {
		return nil, nil, &NotCompletedError{Status: rec.Status}
	}

	data, err := os.ReadFile(rec.FilePath)
	if err != nil {
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, ErrBackupEmpty
	}

	return rec, data, nil
}

// RestoreBackup replaces the live store with the contents of backup id.
//
// The live file is copied aside first, then deleted and rebuilt table by
// table from the snapshot. If rebuilding fails the side copy is put back.
// The side copy is removed whatever the outcome.
func (s *BackupService) RestoreBackup(ctx context.Context, id string) (*models.RestoreResult, error) {
	if id == "" {
		return nil, ErrBackupIDRequired
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !fileExists(rec.FilePath) {
		return nil, ErrBackupFileMissing
	}

	if s.livePath == "" {
		return nil, ErrConfigMissing
	}

	release, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.log.WithFields(logrus.Fields{"backup_id": rec.ID, "file": rec.FilePath})
	tempPath := filepath.Join(filepath.Dir(s.livePath), safetyCopyName)

	defer func() {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("failed to remove safety copy")
		}
	}()

	if fileExists(s.livePath) {
		if err := copyFile(s.livePath, tempPath); err != nil {
			if !s.cfg.BestEffortSafetyCopy {
				log.WithError(err).Error("safety copy failed, restore aborted")
				return nil, fmt.Errorf("%w: safety copy: %v", ErrRestoreFailed, err)
			}
			log.WithError(err).Warn("safety copy failed, continuing restore")
		}
	}

	stats, err := rebuildStore(ctx, rec.FilePath, s.livePath)
	if err != nil {
		log.WithError(err).Error("restore execution failed")
		s.recover(log, tempPath)
		s.reopenLive(log)
		return nil, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}

	s.reopenLive(log)

	log.WithFields(logrus.Fields{"tables": stats.Tables, "rows": stats.Rows}).Info("database restored")

	return &models.RestoreResult{
		ID:         rec.ID,
		Filename:   rec.Filename,
		RestoredAt: s.now(),
	}, nil
}

// recover puts the safety copy back in place of a half-written live store.
func (s *BackupService) recover(log logrus.FieldLogger, tempPath string) {
	if !fileExists(tempPath) {
		log.Error("no safety copy available, live store left as is")
		return
	}
	if err := removeStoreFiles(s.livePath); err != nil {
		log.WithError(err).Error("failed to remove half-written live store")
	}
	if err := copyFile(tempPath, s.livePath); err != nil {
		log.WithError(err).Error("failed to restore from safety copy")
		return
	}
	log.Info("live store recovered from safety copy")
}

func (s *BackupService) reopenLive(log logrus.FieldLogger) {
	if s.live == nil {
		return
	}
	if err := s.live.Reopen(); err != nil {
		log.WithError(err).Error("failed to reopen live store")
	}
}

func (s *BackupService) lock() (func(), error) {
	if err := os.MkdirAll(s.cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	fileLock := flock.New(s.cfg.LockPath())
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire backup lock: %w", err)
	}
	if !locked {
		return nil, ErrOperationInProgress
	}

	return func() {
		_ = fileLock.Unlock()
	}, nil
}

// copyStore writes a structural and row-level copy of srcPath into a new
// file at dstPath.
func copyStore(ctx context.Context, srcPath, dstPath string) (snapshot.Stats, error) {
	src, err := snapshot.OpenSQLiteReadOnly(srcPath)
	if err != nil {
		return snapshot.Stats{}, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := snapshot.CreateSQLite(dstPath)
	if err != nil {
		return snapshot.Stats{}, fmt.Errorf("create snapshot: %w", err)
	}

	stats, err := snapshot.Copy(ctx, src, dst)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	return stats, err
}

// rebuildStore discovers the snapshot's tables, deletes the live store and
// recreates it from the snapshot.
func rebuildStore(ctx context.Context, snapshotPath, livePath string) (snapshot.Stats, error) {
	var stats snapshot.Stats

	src, err := snapshot.OpenSQLiteReadOnly(snapshotPath)
	if err != nil {
		return stats, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = src.Close() }()

	tables, err := src.ListTables(ctx)
	if err != nil {
		return stats, fmt.Errorf("list tables: %w", err)
	}

	if err := removeStoreFiles(livePath); err != nil {
		return stats, fmt.Errorf("remove live store: %w", err)
	}

	dst, err := snapshot.CreateSQLite(livePath)
	if err != nil {
		return stats, fmt.Errorf("create live store: %w", err)
	}

	for _, table := range tables {
		n, err := snapshot.CopyTable(ctx, src, dst, table)
		if err != nil {
			_ = dst.Close()
			return stats, err
		}
		stats.Tables++
		stats.Rows += n
	}

	return stats, dst.Close()
}

// removeStoreFiles deletes a SQLite file together with its journal files.
func removeStoreFiles(path string) error {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func backupFilename(t time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(t.Format("2006-01-02T15:04:05.000"))
	return "backup-" + stamp + ".db"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
