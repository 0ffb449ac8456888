package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/tokens"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "user_id", c.GetString("user_id"))
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

func (h *BaseHandler) respondError(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// currentUserID returns the authenticated user id, writing 401 when absent
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return "", false
	}
	return userID, true
}

// handleServiceError maps service errors to HTTP status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		response := ErrorResponse{
			Error:     http.StatusText(http.StatusBadRequest),
			Message:   "Validation failed",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
			Path:      c.Request.URL.Path,
		}
		for _, ve := range validationErrors {
			response.ValidationErrors = append(response.ValidationErrors, models.ValidationErrorResponse{
				Field:   ve.Field,
				Message: ve.Message,
				Code:    ve.Rule,
			})
		}
		c.JSON(http.StatusBadRequest, response)
		return
	}

	var permissionErr *services.PermissionError
	if errors.As(err, &permissionErr) {
		h.respondError(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionErr.Resource,
			"action":   permissionErr.Action,
			"reason":   permissionErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		h.respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, tokens.ErrUnknownWorkflow):
		h.respondError(c, http.StatusBadRequest, "Unknown workflow", err.Error())
	case errors.Is(err, services.ErrQuestionBankNotFound):
		h.respondError(c, http.StatusNotFound, "Question bank not found", nil)
	case errors.Is(err, services.ErrContextNotFound):
		h.respondError(c, http.StatusNotFound, "Context not found", nil)
	case errors.Is(err, services.ErrUserNotFound):
		h.respondError(c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, services.ErrQuizNotFound), errors.Is(err, services.ErrQuizGroupNotFound):
		h.respondError(c, http.StatusNotFound, "Quiz not found", nil)
	case errors.Is(err, services.ErrQuestionBankDeleted):
		h.respondError(c, http.StatusConflict, "Question bank has been deleted", nil)
	case errors.Is(err, services.ErrSelectionChanged):
		h.respondError(c, http.StatusConflict, "Questions changed during selection, retry the request", nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
