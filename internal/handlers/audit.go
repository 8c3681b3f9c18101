package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/school-portal/internal/services"
)

const maxAuditPage = 200

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List pages through recorded portal actions, newest first.
// GET /api/audit-logs?limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	if limit > maxAuditPage {
		limit = maxAuditPage
	}
	offset := queryInt(c, "offset", 0)

	logs, err := h.auditService.GetLogs(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    logs,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
