package api

import "github.com/gin-gonic/gin"

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/areas", handler.GetMapAreas)
		api.GET("/areas/:area_id/reports", handler.GetAreaReports)
		api.GET("/segments/:segment_id/reports", handler.GetSegmentReports)
		api.GET("/subsegments/:subsegment_id/objects", handler.GetSubsegmentObjects)
		api.GET("/objects/:id/evaluation", handler.GetEvaluation)
		api.PUT("/objects/:id/evaluation", handler.PutEvaluation)
		api.DELETE("/objects/:id/evaluation", handler.DeleteEvaluation)
		api.POST("/objects/batch", handler.IngestObjects)
	}
}
