package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the service routes. Health routes are added by the
// infrastructure gin server.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")

	models := v1.Group("/models")
	models.GET("", handler.ListModels)                        // GET /api/v1/models
	models.POST("/:id/activate", handler.ActivateModel)       // POST /api/v1/models/:id/activate
	models.POST("/:id/train", handler.TrainModel)             // POST /api/v1/models/:id/train
	models.DELETE("/:id/cache", handler.InvalidateModelCache) // DELETE /api/v1/models/:id/cache

	v1.POST("/classify", handler.Classify) // POST /api/v1/classify

	rules := v1.Group("/rules")
	rules.GET("", handler.ListRules)   // GET /api/v1/rules
	rules.POST("", handler.CreateRule) // POST /api/v1/rules

	feedback := v1.Group("/feedback")
	feedback.POST("/process", handler.ProcessPending) // POST /api/v1/feedback/process
	feedback.GET("/stats", handler.ProcessorStats)    // GET /api/v1/feedback/stats
	feedback.GET("/:id/logs", handler.FeedbackLogs)   // GET /api/v1/feedback/:id/logs
}
