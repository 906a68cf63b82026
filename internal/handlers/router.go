package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/brightclass/assessment-delivery/internal/services"
	"github.com/brightclass/assessment-delivery/internal/utils"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	attemptHandler    *AttemptHandler
}

func NewHandlerManager(
	assessmentService services.AssessmentService,
	attemptService services.AttemptService,
	exportService services.ExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(assessmentService, exportService, logger),
		attemptHandler:    NewAttemptHandler(attemptService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		assessments := v1.Group("/assessments")
		{
			assessments.POST("", hm.assessmentHandler.CreateAssessment)
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.DELETE("/:id", hm.assessmentHandler.DeleteAssessment)
			assessments.PUT("/:id/status", hm.assessmentHandler.UpdateAssessmentStatus)
			assessments.GET("/:id/stats", hm.assessmentHandler.GetAssessmentStats)
			assessments.GET("/:id/export", hm.assessmentHandler.ExportResults)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.PUT("/:id/position", hm.attemptHandler.UpdatePosition)
			attempts.PUT("/:id/time", hm.attemptHandler.Heartbeat)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/results", hm.attemptHandler.GetResults)
		}
	}
}
