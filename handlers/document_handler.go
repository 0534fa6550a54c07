package handlers

import (
	"fmt"
	"io"
	"net/http"

	"prism-backend/engine"
	"prism-backend/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler handles HTTP requests for documents
type DocumentHandler struct {
	documentService *service.DocumentService
	maxFileSize     int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxFileSize:     2 * 1024 * 1024, // 2MB
	}
}

// UploadDocument handles POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}

	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	if _, err := engine.FormatFromFilename(fileHeader.Filename); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only .json, .yaml and .yml documents are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_FAILED", "Failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_FAILED", "Failed to read uploaded file")
		return
	}

	result, err := h.documentService.RegisterDocument(c.Request.Context(), service.RegisterDocumentRequest{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"document":  result.Record,
		"anomalies": anomaliesOrEmpty(result.Anomalies),
	})
}

// GetDocument handles GET /api/documents/:id
// The id may be the document UUID or its slug.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := h.documentService.ResolveID(ctx, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result, err := h.documentService.GetDocument(ctx, service.GetDocumentRequest{DocumentID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"record":      result.Document.Record,
		"document":    result.Document.Document,
		"anomalies":   anomaliesOrEmpty(result.Document.Anomalies),
		"fingerprint": result.Document.Fingerprint,
	})
}

func anomaliesOrEmpty(a []engine.Anomaly) []engine.Anomaly {
	if a == nil {
		return []engine.Anomaly{}
	}
	return a
}
