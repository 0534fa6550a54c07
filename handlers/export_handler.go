package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"prism-backend/models"
	"prism-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportHandler handles HTTP requests for export jobs
type ExportHandler struct {
	exportService *service.ExportService
	logger        *zap.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *service.ExportService, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// CreateExportRequest represents the optional request body for an export
type CreateExportRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=tei"`
}

// CreateExport handles POST /api/sessions/:id/exports
func (h *ExportHandler) CreateExport(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	var req CreateExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	// Create job (synchronous, fast)
	result, err := h.exportService.CreateExport(c.Request.Context(), service.CreateExportRequest{
		SessionID: id,
		Format:    models.ExportFormat(req.Format),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Render and upload in the background; the client polls the job
	go func() {
		bgCtx := context.Background()
		if err := h.exportService.ProcessExport(bgCtx, result.JobID); err != nil {
			h.logger.Error("export job failed",
				zap.String("job_id", result.JobID.String()),
				zap.Error(err),
			)
		}
	}()

	respondOK(c, http.StatusAccepted, gin.H{
		"job_id":  result.JobID,
		"status":  models.ExportStatusPending,
		"message": "Export job created. Poll /api/exports/:id for updates.",
	})
}

// GetExport handles GET /api/exports/:id
func (h *ExportHandler) GetExport(c *gin.Context) {
	id, ok := parseID(c, "id", "export")
	if !ok {
		return
	}

	result, err := h.exportService.GetExportStatus(c.Request.Context(), service.GetExportStatusRequest{JobID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result.Job)
}

// DownloadExport handles GET /api/exports/:id/download
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	id, ok := parseID(c, "id", "export")
	if !ok {
		return
	}

	art, err := h.exportService.OpenArtifact(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer art.Body.Close()

	c.Header("Content-Type", art.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", art.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, art.Body); err != nil {
		h.logger.Warn("export download interrupted", zap.String("job_id", id.String()), zap.Error(err))
	}
}
