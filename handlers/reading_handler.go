package handlers

import (
	"net/http"
	"strconv"

	"prism-backend/models"
	"prism-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReadingHandler handles HTTP requests for reading sessions
type ReadingHandler struct {
	readingService  *service.ReadingService
	documentService *service.DocumentService
}

// NewReadingHandler creates a new reading handler
func NewReadingHandler(readingService *service.ReadingService, documentService *service.DocumentService) *ReadingHandler {
	return &ReadingHandler{
		readingService:  readingService,
		documentService: documentService,
	}
}

// CreateSessionRequest represents the request body for opening a session
type CreateSessionRequest struct {
	DocumentID      string `json:"document_id" binding:"required"`
	Token           string `json:"token"`
	ResumeSessionID string `json:"resume_session_id"`
}

// ApplyPickRequest represents the request body for a pick
type ApplyPickRequest struct {
	Line        *int `json:"line" binding:"required"`
	Alternative *int `json:"alternative" binding:"required"`
}

// CreateSession handles POST /api/sessions
func (h *ReadingHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()
	documentID, err := h.documentService.ResolveID(ctx, req.DocumentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	serviceReq := service.CreateSessionRequest{
		DocumentID: documentID,
		Token:      req.Token,
	}
	if req.ResumeSessionID != "" {
		resume, err := uuid.Parse(req.ResumeSessionID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "Invalid resume_session_id format")
			return
		}
		serviceReq.ResumeFrom = &resume
	}

	result, err := h.readingService.CreateSession(ctx, serviceReq)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, result.View)
}

// GetSession handles GET /api/sessions/:id
func (h *ReadingHandler) GetSession(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	result, err := h.readingService.GetSession(c.Request.Context(), service.GetSessionRequest{SessionID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result.View)
}

// SetStrategies handles PUT /api/sessions/:id/strategies
func (h *ReadingHandler) SetStrategies(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	var strategies models.Strategies
	if err := c.ShouldBindJSON(&strategies); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.readingService.SetStrategies(c.Request.Context(), service.SetStrategiesRequest{
		SessionID:  id,
		Strategies: strategies,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result.View)
}

// GetAlternatives handles GET /api/sessions/:id/lines/:line/alternatives
func (h *ReadingHandler) GetAlternatives(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}
	line, err := strconv.Atoi(c.Param("line"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_LINE", "Line must be an integer")
		return
	}

	result, err := h.readingService.Alternatives(c.Request.Context(), service.AlternativesRequest{
		SessionID: id,
		Line:      line,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// ApplyPick handles POST /api/sessions/:id/picks
func (h *ReadingHandler) ApplyPick(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	var req ApplyPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.readingService.ApplyPick(c.Request.Context(), service.ApplyPickRequest{
		SessionID:   id,
		Line:        *req.Line,
		Alternative: *req.Alternative,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// ResetPicks handles DELETE /api/sessions/:id/picks
func (h *ReadingHandler) ResetPicks(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	result, err := h.readingService.Reset(c.Request.Context(), service.ResetRequest{SessionID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result.View)
}

// Resolve handles POST /api/sessions/:id/resolve
func (h *ReadingHandler) Resolve(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	result, err := h.readingService.Resolve(c.Request.Context(), service.ResolveRequest{SessionID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result.View)
}

// Share handles GET /api/sessions/:id/share
func (h *ReadingHandler) Share(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	result, err := h.readingService.Share(c.Request.Context(), service.ShareRequest{SessionID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// Comparison handles GET /api/sessions/:id/comparison
func (h *ReadingHandler) Comparison(c *gin.Context) {
	id, ok := parseID(c, "id", "session")
	if !ok {
		return
	}

	result, err := h.readingService.Comparison(c.Request.Context(), service.ComparisonRequest{SessionID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}
