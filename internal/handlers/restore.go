package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/services"
)

// RestoreHandler handles restoring the live store from a backup.
type RestoreHandler struct {
	backupService   *services.BackupService
	settingsService *services.SettingsService
	auditService    *services.AuditService
	scheduler       ScheduleApplier
	log             logrus.FieldLogger
}

// NewRestoreHandler creates a new RestoreHandler instance. scheduler may be
// nil; when set it is reloaded from the restored system settings.
func NewRestoreHandler(backupService *services.BackupService, settingsService *services.SettingsService, auditService *services.AuditService, scheduler ScheduleApplier, log logrus.FieldLogger) *RestoreHandler {
	return &RestoreHandler{
		backupService:   backupService,
		settingsService: settingsService,
		auditService:    auditService,
		scheduler:       scheduler,
		log:             log,
	}
}

// Restore replaces the live store with a completed backup.
// POST /api/restore
func (h *RestoreHandler) Restore(c *gin.Context) {
	var req models.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Backup ID is required"})
		return
	}

	result, err := h.backupService.RestoreBackup(context.WithoutCancel(c.Request.Context()), req.BackupID)
	if err != nil {
		respondBackupError(c, h.log, err, "Failed to restore database", false)
		return
	}

	h.reloadSchedule()

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionBackupRestore,
		ResourceType: "backup",
		ResourceID:   result.ID,
		Details:      map[string]interface{}{"filename": result.Filename},
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database restored successfully",
		"backup":  result,
	})
}

// reloadSchedule applies the system settings that came back with the
// restored store, so the running cron job matches what GET returns.
func (h *RestoreHandler) reloadSchedule() {
	if h.scheduler == nil || h.settingsService == nil {
		return
	}
	settings, err := h.settingsService.Get()
	if err != nil {
		h.log.WithError(err).Error("failed to read restored system settings")
		return
	}
	if err := h.scheduler.Apply(settings); err != nil {
		h.log.WithError(err).WithField("schedule", settings.BackupSchedule).Error("failed to reload backup schedule after restore")
	}
}

// List returns the backups that can be restored.
// GET /api/restore
func (h *RestoreHandler) List(c *gin.Context) {
	backups, err := h.backupService.ListRestoreCandidates(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list restore candidates")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch restore options"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "backups": backups})
}
