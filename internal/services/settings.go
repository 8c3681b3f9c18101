package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/models"
)

// ErrInvalidSchedule indicates a backup schedule that is neither a preset
// nor a valid five-field cron expression.
var ErrInvalidSchedule = errors.New("invalid backup schedule")

var schedulePresets = map[string]string{
	models.ScheduleDaily:   "0 2 * * *",
	models.ScheduleWeekly:  "0 2 * * 0",
	models.ScheduleMonthly: "0 2 1 * *",
}

// CronSpec resolves a backup schedule to a cron expression.
func CronSpec(schedule string) (string, error) {
	schedule = strings.TrimSpace(schedule)
	if spec, ok := schedulePresets[strings.ToLower(schedule)]; ok {
		return spec, nil
	}
	if _, err := parseCronSchedule(schedule); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return schedule, nil
}

func parseCronSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
}

// SettingsService manages the single system_settings row.
type SettingsService struct {
	db *database.DB
}

// NewSettingsService creates a new SettingsService instance.
func NewSettingsService(db *database.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the saved settings, or the defaults when none exist.
func (s *SettingsService) Get() (models.SystemSettings, error) {
	settings, _, err := s.load()
	return settings, err
}

func (s *SettingsService) load() (models.SystemSettings, int64, error) {
	var (
		id       int64
		settings models.SystemSettings
	)
	err := s.db.QueryRow(`
		SELECT id, whatsapp_enabled, whatsapp_api_token, whatsapp_sender, auto_backup_enabled, backup_schedule
		FROM system_settings ORDER BY id LIMIT 1
	`).Scan(&id, &settings.WhatsappEnabled, &settings.WhatsappAPIToken, &settings.WhatsappSender,
		&settings.AutoBackupEnabled, &settings.BackupSchedule)

	if err == sql.ErrNoRows {
		return models.DefaultSystemSettings(), 0, nil
	}
	if err != nil {
		return models.SystemSettings{}, 0, err
	}
	return settings, id, nil
}

// Update saves settings, creating the row on first use. Omitted booleans
// become false and an empty schedule becomes daily.
func (s *SettingsService) Update(req *models.UpdateSystemSettingsRequest) (models.SystemSettings, error) {
	settings := models.SystemSettings{
		WhatsappAPIToken: req.WhatsappAPIToken,
		WhatsappSender:   req.WhatsappSender,
		BackupSchedule:   strings.TrimSpace(req.BackupSchedule),
	}
	if req.WhatsappEnabled != nil {
		settings.WhatsappEnabled = *req.WhatsappEnabled
	}
	if req.AutoBackupEnabled != nil {
		settings.AutoBackupEnabled = *req.AutoBackupEnabled
	}
	if settings.BackupSchedule == "" {
		settings.BackupSchedule = models.ScheduleDaily
	}

	if _, err := CronSpec(settings.BackupSchedule); err != nil {
		return models.SystemSettings{}, err
	}

	_, id, err := s.load()
	if err != nil {
		return models.SystemSettings{}, err
	}

	if id == 0 {
		_, err = s.db.Exec(`
			INSERT INTO system_settings (whatsapp_enabled, whatsapp_api_token, whatsapp_sender, auto_backup_enabled, backup_schedule)
			VALUES (?, ?, ?, ?, ?)
		`, settings.WhatsappEnabled, settings.WhatsappAPIToken, settings.WhatsappSender,
			settings.AutoBackupEnabled, settings.BackupSchedule)
	} else {
		_, err = s.db.Exec(`
			UPDATE system_settings
			SET whatsapp_enabled = ?, whatsapp_api_token = ?, whatsapp_sender = ?,
				auto_backup_enabled = ?, backup_schedule = ?, updated_at = ?
			WHERE id = ?
		`, settings.WhatsappEnabled, settings.WhatsappAPIToken, settings.WhatsappSender,
			settings.AutoBackupEnabled, settings.BackupSchedule, time.Now().UTC(), id)
	}
	if err != nil {
		return models.SystemSettings{}, err
	}

	return s.Get()
}
