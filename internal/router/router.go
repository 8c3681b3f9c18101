package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/config"
	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/handlers"
	"github.com/pandeptwidyaop/school-portal/internal/middleware"
	"github.com/pandeptwidyaop/school-portal/internal/services"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	DB        *database.DB
	Backups   *services.BackupService
	Settings  *services.SettingsService
	Schools   *services.SchoolService
	Audit     *services.AuditService
	Scheduler *services.Scheduler
}

func New(cfg *config.Config, log logrus.FieldLogger, svc Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.SecurityHeaders(cfg.Server.PathPrefix + "/api"))
	r.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	r.Use(middleware.PathPrefix(cfg.Server.PathPrefix))

	prefix := r.Group(cfg.Server.PathPrefix)

	var (
		applier  handlers.ScheduleApplier
		schedule handlers.ScheduleInfo
	)
	if svc.Scheduler != nil {
		applier, schedule = svc.Scheduler, svc.Scheduler
	}

	backupHandler := handlers.NewBackupHandler(svc.Backups, svc.Audit, log)
	restoreHandler := handlers.NewRestoreHandler(svc.Backups, svc.Settings, svc.Audit, applier, log)
	settingsHandler := handlers.NewSettingsHandler(svc.Settings, svc.Audit, applier, log)
	schoolHandler := handlers.NewSchoolHandler(svc.Schools, svc.Audit, log)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	versionHandler := handlers.NewVersionHandler()
	systemHandler := handlers.NewSystemHandler(svc.DB, schedule, cfg.Offsite.Enabled(), cfg.Backup.BestEffortSafetyCopy).
		WithBackupVolume(cfg.Backup.Dir)

	api := prefix.Group("/api")
	{
		api.GET("/version", versionHandler.Get)
		api.GET("/system/status", systemHandler.Status)

		api.POST("/backup", backupHandler.Create)
		api.GET("/backup", backupHandler.List)
		api.GET("/backup/download", backupHandler.Download)

		api.POST("/restore", restoreHandler.Restore)
		api.GET("/restore", restoreHandler.List)

		api.GET("/system-settings", settingsHandler.Get)
		api.PUT("/system-settings", settingsHandler.Update)

		api.GET("/school", schoolHandler.List)
		api.POST("/school", schoolHandler.Create)
		api.GET("/school/:id", schoolHandler.Get)
		api.PUT("/school/:id", schoolHandler.Update)
		api.DELETE("/school/:id", schoolHandler.Delete)

		api.GET("/audit-logs", auditHandler.List)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
