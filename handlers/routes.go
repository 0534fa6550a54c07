package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API on r
func RegisterRoutes(r *gin.Engine, documents *DocumentHandler, reading *ReadingHandler, exports *ExportHandler) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Document endpoints
		api.POST("/documents", documents.UploadDocument)
		api.GET("/documents/:id", documents.GetDocument)

		// Session endpoints
		api.POST("/sessions", reading.CreateSession)
		api.GET("/sessions/:id", reading.GetSession)
		api.PUT("/sessions/:id/strategies", reading.SetStrategies)
		api.GET("/sessions/:id/lines/:line/alternatives", reading.GetAlternatives)
		api.POST("/sessions/:id/picks", reading.ApplyPick)
		api.DELETE("/sessions/:id/picks", reading.ResetPicks)
		api.POST("/sessions/:id/resolve", reading.Resolve)
		api.GET("/sessions/:id/share", reading.Share)
		api.GET("/sessions/:id/comparison", reading.Comparison)
		api.POST("/sessions/:id/exports", exports.CreateExport)

		// Export endpoints
		api.GET("/exports/:id", exports.GetExport)
		api.GET("/exports/:id/download", exports.DownloadExport)
	}
}
