package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/models"
)

// BackupRunner creates backups on behalf of the scheduler.
type BackupRunner interface {
	CreateBackup(ctx context.Context, backupType models.BackupType) (*models.BackupRecord, error)
}

// Scheduler runs scheduled backups according to the system settings.
type Scheduler struct {
	cron    *cron.Cron
	runner  BackupRunner
	log     logrus.FieldLogger
	mu      sync.Mutex
	entry   cron.EntryID
	spec    string
	started bool
}

// NewScheduler creates a scheduler. Nothing runs until Apply enables it and
// Start is called.
func NewScheduler(runner BackupRunner, log logrus.FieldLogger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		runner: runner,
		log:    log.WithField("component", "scheduler"),
	}
}

// Apply replaces the scheduled job to match settings. A disabled auto backup
// removes the job.
func (s *Scheduler) Apply(settings models.SystemSettings) error {
	var spec string
	if settings.AutoBackupEnabled {
		var err error
		spec, err = CronSpec(settings.BackupSchedule)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
		s.spec = ""
	}

	if spec == "" {
		s.log.Info("scheduled backups disabled")
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return err
	}
	s.entry = id
	s.spec = spec

	s.log.WithFields(logrus.Fields{"schedule": settings.BackupSchedule, "cron": spec}).Info("scheduled backups enabled")
	return nil
}

// Spec returns the active cron expression, or "" when disabled.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// NextRun returns the next scheduled time when a job is active and the
// scheduler has been started.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}, false
	}
	next := s.cron.Entry(s.entry).Next
	return next, !next.IsZero()
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts the scheduler and waits for a running backup to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduled backup still running at shutdown")
	}
}

func (s *Scheduler) run() {
	rec, err := s.runner.CreateBackup(context.Background(), models.BackupTypeScheduled)
	if errors.Is(err, ErrOperationInProgress) {
		s.log.Warn("scheduled backup skipped, another operation is in progress")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("scheduled backup failed")
		return
	}
	s.log.WithFields(logrus.Fields{"backup_id": rec.ID, "file": rec.Filename}).Info("scheduled backup completed")
}
