package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

const serviceName = "question-bank-service"

type HandlerManager struct {
	serviceManager      services.ServiceManager
	questionBankHandler *QuestionBankHandler
	tokenHandler        *TokenHandler
	authMiddleware      *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:      serviceManager,
		questionBankHandler: NewQuestionBankHandler(serviceManager.QuestionBank(), serviceManager.Export(), logger),
		tokenHandler:        NewTokenHandler(serviceManager.Token(), logger),
		authMiddleware:      authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		banks := v1.Group("/question-banks")
		{
			banks.POST("", hm.questionBankHandler.CreateQuestionBank)
			banks.GET("", hm.questionBankHandler.ListQuestionBanks)
			banks.GET("/:id", hm.questionBankHandler.GetQuestionBank)
			banks.PUT("/:id", hm.questionBankHandler.UpdateQuestionBank)
			banks.DELETE("/:id", hm.questionBankHandler.DeleteQuestionBank)
			banks.GET("/:id/rights", hm.questionBankHandler.GetQuestionBankRights)

			// Lifecycle
			banks.POST("/:id/clear", hm.questionBankHandler.ClearQuestionBank)

			// Bookmarks
			banks.PUT("/:id/bookmark", hm.questionBankHandler.BookmarkQuestionBank)
			banks.DELETE("/:id/bookmark", hm.questionBankHandler.UnbookmarkQuestionBank)

			// Outcome alignments
			banks.GET("/:id/alignments", hm.questionBankHandler.GetAlignments)
			banks.PUT("/:id/alignments", hm.questionBankHandler.SetAlignments)

			// Questions
			banks.POST("/:id/select", hm.questionBankHandler.SelectQuestions)
			banks.GET("/:id/export", hm.questionBankHandler.ExportQuestions)
		}

		v1.GET("/bookmarks", hm.questionBankHandler.ListBookmarkedQuestionBanks)
		v1.POST("/contexts/:type/:id/unfiled-bank", hm.questionBankHandler.GetUnfiledQuestionBank)

		v1.POST("/tokens", hm.tokenHandler.IssueToken)
	}
}

// HealthCheck reports whether storage is reachable
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}
