package models

// Backup schedule presets accepted in SystemSettings.BackupSchedule. Any
// other value must be a five-field cron expression.
const (
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// SystemSettings holds the single row of portal-wide settings.
type SystemSettings struct {
	WhatsappAPIToken  string `json:"whatsappApiToken"`
	WhatsappSender    string `json:"whatsappSender"`
	BackupSchedule    string `json:"backupSchedule"`
	WhatsappEnabled   bool   `json:"whatsappEnabled"`
	AutoBackupEnabled bool   `json:"autoBackupEnabled"`
}

// DefaultSystemSettings is returned when nothing has been saved yet.
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{BackupSchedule: ScheduleDaily}
}

// UpdateSystemSettingsRequest mirrors SystemSettings with optional fields so
// omitted values fall back to defaults instead of zero values.
type UpdateSystemSettingsRequest struct {
	WhatsappEnabled   *bool  `json:"whatsappEnabled"`
	WhatsappAPIToken  string `json:"whatsappApiToken"`
	WhatsappSender    string `json:"whatsappSender"`
	AutoBackupEnabled *bool  `json:"autoBackupEnabled"`
	BackupSchedule    string `json:"backupSchedule"`
}
