// Package models defines data models for backups, settings, and schools.
package models

import "time"

// BackupType tells whether a backup was requested by an admin or the scheduler.
type BackupType string

const (
	BackupTypeManual    BackupType = "manual"
	BackupTypeScheduled BackupType = "scheduled"
)

// BackupStatus is the outcome of a backup attempt.
type BackupStatus string

const (
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// BackupRecord describes one backup attempt. Records are written once and
// never updated.
type BackupRecord struct {
	CreatedAt  time.Time    `json:"createdAt"`
	ID         string       `json:"id"`
	Filename   string       `json:"filename"`
	FilePath   string       `json:"-"`
	BackupType BackupType   `json:"backupType"`
	Status     BackupStatus `json:"status"`
	FileSize   int64        `json:"fileSize"`
}

// BackupListItem is a record annotated with whether its file is still on disk.
type BackupListItem struct {
	BackupRecord
	FileExists bool `json:"fileExists"`
}

// RestoreRequest is the body of POST /restore.
type RestoreRequest struct {
	BackupID string `json:"backupId"`
}

// RestoreResult is returned after a successful restore.
type RestoreResult struct {
	RestoredAt time.Time `json:"restoredAt"`
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
}
