package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/services"
)

// BackupHandler handles backup creation, listing and download.
type BackupHandler struct {
	backupService *services.BackupService
	auditService  *services.AuditService
	log           logrus.FieldLogger
}

// NewBackupHandler creates a new BackupHandler instance.
func NewBackupHandler(backupService *services.BackupService, auditService *services.AuditService, log logrus.FieldLogger) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
		auditService:  auditService,
		log:           log,
	}
}

// Create snapshots the live store.
// POST /api/backup
func (h *BackupHandler) Create(c *gin.Context) {
	// a started backup runs to completion even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())

	rec, err := h.backupService.CreateBackup(ctx, models.BackupTypeManual)
	if err != nil {
		respondBackupError(c, h.log, err, "Failed to create backup", false)
		return
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionBackupCreate,
		ResourceType: "backup",
		ResourceID:   rec.ID,
		Details:      map[string]interface{}{"filename": rec.Filename, "file_size": rec.FileSize},
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Backup created successfully",
		"backup": gin.H{
			"id":        rec.ID,
			"filename":  rec.Filename,
			"fileSize":  rec.FileSize,
			"createdAt": rec.CreatedAt,
		},
	})
}

// List returns every backup record, newest first.
// GET /api/backup
func (h *BackupHandler) List(c *gin.Context) {
	backups, err := h.backupService.ListBackups(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list backups")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch backups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "backups": backups})
}

// Download streams a completed backup file.
// GET /api/backup/download?id=<id>
func (h *BackupHandler) Download(c *gin.Context) {
	id := c.Query("id")

	rec, data, err := h.backupService.DownloadBackup(c.Request.Context(), id)
	if err != nil {
		respondBackupError(c, h.log, err, "Failed to download backup", true)
		return
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionBackupDownload,
		ResourceType: "backup",
		ResourceID:   rec.ID,
		Details:      map[string]interface{}{"filename": rec.Filename},
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// backupErrorResponse maps a backup service error to a status and message.
// onServer selects the download wording for a missing file.
func backupErrorResponse(err error, fallback string, onServer bool) (int, string) {
	var notCompleted *services.NotCompletedError

	switch {
	case errors.Is(err, services.ErrBackupIDRequired):
		return http.StatusBadRequest, "Backup ID is required"
	case errors.Is(err, services.ErrConfigMissing):
		return http.StatusInternalServerError, "DATABASE_URL environment variable is not set"
	case errors.Is(err, services.ErrSourceNotFound):
		return http.StatusNotFound, "Source database file not found"
	case errors.Is(err, services.ErrBackupNotFound):
		return http.StatusNotFound, "Backup not found"
	case errors.Is(err, services.ErrBackupFileMissing):
		if onServer {
			return http.StatusNotFound, "Backup file not found on server"
		}
		return http.StatusNotFound, "Backup file not found"
	case errors.As(err, &notCompleted):
		return http.StatusBadRequest, fmt.Sprintf("Backup is not completed yet. Status: %s", notCompleted.Status)
	case errors.Is(err, services.ErrBackupEmpty):
		return http.StatusInternalServerError, "Backup file is empty"
	case errors.Is(err, services.ErrOperationInProgress):
		return http.StatusConflict, "Another backup or restore is in progress"
	case errors.Is(err, services.ErrBackupFailed), errors.Is(err, services.ErrRestoreFailed):
		return http.StatusInternalServerError, capitalize(err.Error())
	default:
		return http.StatusInternalServerError, fmt.Sprintf("%s: %v", fallback, err)
	}
}

func respondBackupError(c *gin.Context, log logrus.FieldLogger, err error, fallback string, onServer bool) {
	status, msg := backupErrorResponse(err, fallback, onServer)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error(fallback)
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// audit records an admin action with the caller's address. Failures are
// already logged by the audit service.
func audit(auditService *services.AuditService, c *gin.Context, entry services.AuditLog) {
	if auditService == nil {
		return
	}
	entry.IPAddress = c.ClientIP()
	entry.UserAgent = c.GetHeader("User-Agent")
	_ = auditService.Log(entry)
}
