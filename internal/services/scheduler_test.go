package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/school-portal/internal/logging"
	"github.com/pandeptwidyaop/school-portal/internal/models"
)

type fakeRunner struct {
	err   error
	types []models.BackupType
	mu    sync.Mutex
}

func (f *fakeRunner) CreateBackup(_ context.Context, backupType models.BackupType) (*models.BackupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, backupType)
	if f.err != nil {
		return nil, f.err
	}
	return &models.BackupRecord{ID: "b1", Filename: "backup.db"}, nil
}

func TestScheduler_ApplyEnablesAndDisables(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logging.Discard())

	require.NoError(t, s.Apply(models.SystemSettings{AutoBackupEnabled: true, BackupSchedule: "weekly"}))
	assert.Equal(t, "0 2 * * 0", s.Spec())
	assert.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Apply(models.SystemSettings{AutoBackupEnabled: true, BackupSchedule: "15 3 * * *"}))
	assert.Equal(t, "15 3 * * *", s.Spec())
	assert.Len(t, s.cron.Entries(), 1, "reapplying must replace the job")

	require.NoError(t, s.Apply(models.SystemSettings{AutoBackupEnabled: false, BackupSchedule: "daily"}))
	assert.Equal(t, "", s.Spec())
	assert.Empty(t, s.cron.Entries())

	_, ok := s.NextRun()
	assert.False(t, ok)
}

func TestScheduler_ApplyRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logging.Discard())
	require.NoError(t, s.Apply(models.SystemSettings{AutoBackupEnabled: true, BackupSchedule: "daily"}))

	err := s.Apply(models.SystemSettings{AutoBackupEnabled: true, BackupSchedule: "nonsense"})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	assert.Equal(t, "0 2 * * *", s.Spec(), "a rejected schedule keeps the previous job")
}

func TestScheduler_NextRunAfterStart(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logging.Discard())
	require.NoError(t, s.Apply(models.SystemSettings{AutoBackupEnabled: true, BackupSchedule: "daily"}))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		_, ok := s.NextRun()
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_RunCreatesScheduledBackup(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logging.Discard())

	s.run()

	runner.err = ErrOperationInProgress
	s.run()

	runner.err = errors.New("disk full")
	s.run()

	assert.Equal(t, []models.BackupType{
		models.BackupTypeScheduled,
		models.BackupTypeScheduled,
		models.BackupTypeScheduled,
	}, runner.types)
}
