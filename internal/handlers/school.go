package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/services"
	"github.com/pandeptwidyaop/school-portal/internal/validation"
)

// SchoolHandler handles school identity CRUD.
type SchoolHandler struct {
	schoolService *services.SchoolService
	auditService  *services.AuditService
	log           logrus.FieldLogger
}

// NewSchoolHandler creates a new SchoolHandler instance.
func NewSchoolHandler(schoolService *services.SchoolService, auditService *services.AuditService, log logrus.FieldLogger) *SchoolHandler {
	return &SchoolHandler{
		schoolService: schoolService,
		auditService:  auditService,
		log:           log,
	}
}

func (h *SchoolHandler) List(c *gin.Context) {
	schools, err := h.schoolService.GetAllSchools()
	if err != nil {
		h.log.WithError(err).Error("failed to fetch schools")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schools"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"schools": schools})
}

func (h *SchoolHandler) Create(c *gin.Context) {
	var req models.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	school, err := h.schoolService.CreateSchool(&req)
	if err != nil {
		h.respondError(c, err, "Failed to create school")
		return
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionSchoolCreate,
		ResourceType: "school",
		ResourceID:   school.ID,
		Details:      map[string]interface{}{"name": school.Name},
	})

	c.JSON(http.StatusCreated, gin.H{"school": school})
}

func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.schoolService.GetSchoolByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch school")
		return
	}

	c.JSON(http.StatusOK, gin.H{"school": school})
}

func (h *SchoolHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req models.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	school, err := h.schoolService.UpdateSchool(id, &req)
	if err != nil {
		h.respondError(c, err, "Failed to update school")
		return
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionSchoolUpdate,
		ResourceType: "school",
		ResourceID:   school.ID,
		Details:      map[string]interface{}{"name": school.Name},
	})

	c.JSON(http.StatusOK, gin.H{"school": school})
}

func (h *SchoolHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.schoolService.DeleteSchool(id); err != nil {
		h.respondError(c, err, "Failed to delete school")
		return
	}

	audit(h.auditService, c, services.AuditLog{
		Action:       services.ActionSchoolDelete,
		ResourceType: "school",
		ResourceID:   id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "School deleted successfully"})
}

func (h *SchoolHandler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrSchoolNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "School name is required"})
	case errors.Is(err, services.ErrSchoolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "School not found"})
	case errors.Is(err, services.ErrSchoolExists):
		c.JSON(http.StatusConflict, gin.H{"error": "School with this name already exists"})
	case errors.Is(err, validation.ErrInputTooLong),
		errors.Is(err, validation.ErrInputInvalid),
		errors.Is(err, validation.ErrEmailInvalid),
		errors.Is(err, validation.ErrURLInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
