package handlers

import (
	"errors"
	"net/http"

	"prism-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondServiceError maps service sentinel errors onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, "DOCUMENT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrDocumentUnavailable):
		respondError(c, http.StatusServiceUnavailable, "DOCUMENT_UNAVAILABLE", err.Error())
	case errors.Is(err, service.ErrInvalidDocument):
		respondError(c, http.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
	case errors.Is(err, service.ErrChoiceNotFound):
		respondError(c, http.StatusNotFound, "CHOICE_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrAlternativeOutOfRange):
		respondError(c, http.StatusBadRequest, "ALTERNATIVE_OUT_OF_RANGE", err.Error())
	case errors.Is(err, service.ErrExportNotFound):
		respondError(c, http.StatusNotFound, "EXPORT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrExportNotReady):
		respondError(c, http.StatusConflict, "EXPORT_NOT_READY", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// parseID reads a UUID path parameter, writing a 400 when it is malformed
func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
