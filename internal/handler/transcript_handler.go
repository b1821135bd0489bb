package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniserve/registrar-api/internal/models"
	"github.com/uniserve/registrar-api/internal/service"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
	"github.com/uniserve/registrar-api/pkg/response"
)

// TranscriptHandler exposes the official transcript request lifecycle.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Create godoc
// @Summary Request an official transcript
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param payload body service.TranscriptRequestInput true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /transcript-requests [post]
func (h *TranscriptHandler) Create(c *gin.Context) {
	var input service.TranscriptRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.transcripts.RequestTranscript(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List transcript requests
// @Tags Transcripts
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transcript-requests [get]
func (h *TranscriptHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	requests, pagination, err := h.transcripts.ListRequests(c.Request.Context(),
		c.Query("studentId"), models.TranscriptRequestStatus(c.Query("status")), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get transcript request
// @Tags Transcripts
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /transcript-requests/{id} [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	request, err := h.transcripts.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Process godoc
// @Summary Approve or reject a pending transcript request
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ProcessRequestInput true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /transcript-requests/{id}/process [post]
func (h *TranscriptHandler) Process(c *gin.Context) {
	var input service.ProcessRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.transcripts.ProcessRequest(c.Request.Context(), c.Param("id"), actorID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Issue godoc
// @Summary Render and store the official transcript for an approved request
// @Tags Transcripts
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /transcript-requests/{id}/issue [post]
func (h *TranscriptHandler) Issue(c *gin.Context) {
	request, err := h.transcripts.IssueTranscript(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// DownloadURL godoc
// @Summary Signed download URL for an issued transcript
// @Tags Transcripts
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /transcript-requests/{id}/download-url [get]
func (h *TranscriptHandler) DownloadURL(c *gin.Context) {
	link, err := h.transcripts.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download an issued transcript with a signed token
// @Tags Transcripts
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /transcripts/download [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	reader, filename, err := h.transcripts.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
