package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniserve/registrar-api/internal/models"
	"github.com/uniserve/registrar-api/internal/service"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
	"github.com/uniserve/registrar-api/pkg/response"
)

// SectionHandler exposes course-section endpoints, including the waitlist
// maintenance operations.
type SectionHandler struct {
	sections    *service.SectionService
	enrollments *service.EnrollmentService
	exports     *service.ExportService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService, enrollments *service.EnrollmentService, exports *service.ExportService) *SectionHandler {
	return &SectionHandler{sections: sections, enrollments: enrollments, exports: exports}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param term query string false "Filter by term"
// @Param departmentId query string false "Filter by department"
// @Param status query string false "Filter by status"
// @Param search query string false "Search course code or title"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	var filter models.SectionFilter
	filter.CourseID = c.Query("courseId")
	filter.Term = c.Query("term")
	filter.DepartmentID = c.Query("departmentId")
	filter.Search = c.Query("search")
	filter.Status = models.SectionStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	sections, pagination, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Get godoc
// @Summary Get section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.UpdateSectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.sections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// UpdateStatus godoc
// @Summary Update section status
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body map[string]string true "New status"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/status [put]
func (h *SectionHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	section, err := h.sections.UpdateStatus(c.Request.Context(), c.Param("id"), models.SectionStatus(payload.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Availability godoc
// @Summary Section seat availability
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/availability [get]
func (h *SectionHandler) Availability(c *gin.Context) {
	availability, err := h.enrollments.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Promote godoc
// @Summary Promote the head of the waitlist
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/promote [post]
func (h *SectionHandler) Promote(c *gin.Context) {
	promoted, err := h.enrollments.PromoteWaitlist(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if promoted == nil {
		response.JSON(c, http.StatusOK, gin.H{"promoted": false}, nil)
		return
	}
	response.JSON(c, http.StatusOK, promoted, nil)
}

// Reconcile godoc
// @Summary Reconcile cached seat counters against enrollment rows
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/reconcile [post]
func (h *SectionHandler) Reconcile(c *gin.Context) {
	result, err := h.enrollments.ReconcileSection(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportRoster godoc
// @Summary Export section roster
// @Tags Sections
// @Produce text/csv
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /sections/{id}/roster/export [get]
func (h *SectionHandler) ExportRoster(c *gin.Context) {
	var doc *service.ExportDocument
	var err error
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		doc, err = h.exports.RosterPDF(c.Request.Context(), c.Param("id"))
	default:
		doc, err = h.exports.RosterCSV(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// ListByInstructor godoc
// @Summary List sections taught by an instructor
// @Tags Sections
// @Produce json
// @Param instructorId path string true "Instructor ID"
// @Param term query string false "Filter by term"
// @Success 200 {object} response.Envelope
// @Router /instructors/{instructorId}/sections [get]
func (h *SectionHandler) ListByInstructor(c *gin.Context) {
	sections, err := h.sections.ListByInstructor(c.Request.Context(), c.Param("instructorId"), c.Query("term"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}
