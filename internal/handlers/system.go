package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/school-portal/internal/metrics"
	"github.com/pandeptwidyaop/school-portal/internal/version"
)

// Pinger reports whether the live store is reachable.
type Pinger interface {
	Ping() error
}

// ScheduleInfo exposes the active backup schedule.
type ScheduleInfo interface {
	Spec() string
	NextRun() (time.Time, bool)
}

// SystemHandler reports process and backup health.
type SystemHandler struct {
	db            Pinger
	scheduler     ScheduleInfo
	offsite       bool
	safetyCopyOpt bool
	backupDir     string
	volume        func(ctx context.Context, path string) (*metrics.DiskMetrics, error)
}

// NewSystemHandler creates a new SystemHandler instance. scheduler may be nil.
func NewSystemHandler(db Pinger, scheduler ScheduleInfo, offsite, bestEffortSafetyCopy bool) *SystemHandler {
	return &SystemHandler{
		db:            db,
		scheduler:     scheduler,
		offsite:       offsite,
		safetyCopyOpt: bestEffortSafetyCopy,
		volume:        metrics.Volume,
	}
}

// WithBackupVolume makes Status report free space where backups are written.
func (h *SystemHandler) WithBackupVolume(dir string) *SystemHandler {
	h.backupDir = dir
	return h
}

// SystemStatus represents the system status response.
type SystemStatus struct {
	NextBackup           *time.Time           `json:"next_backup,omitempty"`
	BackupVolume         *metrics.DiskMetrics `json:"backup_volume,omitempty"`
	Platform             string               `json:"platform"`
	Arch                 string               `json:"arch"`
	CurrentVersion       string               `json:"current_version"`
	DatabaseStatus       string               `json:"database_status"`
	BackupSchedule       string               `json:"backup_schedule"`
	OffsiteEnabled       bool                 `json:"offsite_enabled"`
	BestEffortSafetyCopy bool                 `json:"best_effort_safety_copy"`
}

// Status returns the current system status.
// GET /api/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	status := SystemStatus{
		Platform:             runtime.GOOS,
		Arch:                 runtime.GOARCH,
		CurrentVersion:       version.Version,
		DatabaseStatus:       "ok",
		OffsiteEnabled:       h.offsite,
		BestEffortSafetyCopy: h.safetyCopyOpt,
	}

	if err := h.db.Ping(); err != nil {
		status.DatabaseStatus = "unavailable"
	}

	if h.scheduler != nil {
		status.BackupSchedule = h.scheduler.Spec()
		if next, ok := h.scheduler.NextRun(); ok {
			status.NextBackup = &next
		}
	}

	if h.backupDir != "" {
		// an unreadable volume is left out rather than failing the health check
		if usage, err := h.volume(c.Request.Context(), h.backupDir); err == nil {
			status.BackupVolume = usage
		}
	}

	code := http.StatusOK
	if status.DatabaseStatus != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
