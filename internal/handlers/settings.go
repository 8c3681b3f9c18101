package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/services"
)

// ScheduleApplier reloads the backup schedule after settings change.
type ScheduleApplier interface {
	Apply(settings models.SystemSettings) error
}

// SettingsHandler serves the system settings.
type SettingsHandler struct {
	settingsService *services.SettingsService
	auditService    *services.AuditService
	scheduler       ScheduleApplier
	log             logrus.FieldLogger
}

// NewSettingsHandler creates a new SettingsHandler. scheduler may be nil.
func NewSettingsHandler(settingsService *services.SettingsService, auditService *services.AuditService, scheduler ScheduleApplier, log logrus.FieldLogger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		auditService:    auditService,
		scheduler:       scheduler,
		log:             log,
	}
}

// Get returns the current settings, or defaults when none are saved.
// GET /api/system-settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settingsService.Get()
	if err != nil {
		h.log.WithError(err).Error("failed to fetch system settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch system settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update saves the settings and reloads the backup schedule.
// PUT /api/system-settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSystemSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	settings, err := h.settingsService.Update(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSchedule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid backup schedule: " + req.BackupSchedule})
			return
		}
		h.log.WithError(err).Error("failed to update system settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update system settings"})
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.Apply(settings); err != nil {
			h.log.WithError(err).Error("failed to reload backup schedule")
		}
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionSettingsUpdate,
		ResourceType: "system_settings",
		Details: map[string]interface{}{
			"whatsapp_enabled":    settings.WhatsappEnabled,
			"auto_backup_enabled": settings.AutoBackupEnabled,
			"backup_schedule":     settings.BackupSchedule,
		},
	})

	c.JSON(http.StatusOK, settings)
}
