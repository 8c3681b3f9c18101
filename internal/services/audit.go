package services

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/database"
)

// Audit actions recorded by the admin API.
const (
	ActionBackupCreate   = "backup_create"
	ActionBackupDownload = "backup_download"
	ActionBackupRestore  = "backup_restore"
	ActionSettingsUpdate = "settings_update"
	ActionSchoolCreate   = "school_create"
	ActionSchoolUpdate   = "school_update"
	ActionSchoolDelete   = "school_delete"
)

// AuditService handles audit logging for admin actions.
type AuditService struct {
	db  *database.DB
	log logrus.FieldLogger
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(db *database.DB, log logrus.FieldLogger) *AuditService {
	return &AuditService{db: db, log: log.WithField("component", "audit")}
}

// AuditLog represents an audit log entry to be recorded.
type AuditLog struct {
	Details      map[string]interface{}
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
}

// Log records an audit log entry. Failures are logged and returned but
// callers are not expected to fail the request on them.
func (s *AuditService) Log(entry AuditLog) error {
	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err == nil {
			detailsJSON = string(bytes)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_logs (action, resource_type, resource_id, ip_address, user_agent, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Action, entry.ResourceType, entry.ResourceID, entry.IPAddress, entry.UserAgent, detailsJSON)

	if err != nil {
		s.log.WithError(err).WithField("action", entry.Action).Warn("failed to write audit log")
	}

	return err
}

// AuditLogEntry represents an audit log record from the database.
type AuditLogEntry struct {
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
	ID           int64  `json:"id"`
}

// GetLogs retrieves audit logs with pagination, newest first.
func (s *AuditService) GetLogs(limit, offset int) ([]AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`
		SELECT id, action, resource_type, resource_id, ip_address, user_agent, details, CAST(created_at AS TEXT)
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Initialize empty slice instead of nil to return [] instead of null in JSON
	logs := make([]AuditLogEntry, 0)
	for rows.Next() {
		var entry AuditLogEntry
		var resourceID, ipAddress, userAgent, details *string

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ResourceType,
			&resourceID,
			&ipAddress,
			&userAgent,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		if resourceID != nil {
			entry.ResourceID = *resourceID
		}
		if ipAddress != nil {
			entry.IPAddress = *ipAddress
		}
		if userAgent != nil {
			entry.UserAgent = *userAgent
		}
		if details != nil {
			entry.Details = *details
		}

		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
