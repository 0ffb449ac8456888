package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

type TokenHandler struct {
	BaseHandler
	service services.TokenService
}

func NewTokenHandler(service services.TokenService, logger utils.Logger) *TokenHandler {
	return &TokenHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// IssueToken signs a short-lived token for the requested workflows
// @Summary Issue a workflow token
// @Description Builds one payload per workflow ("rich_content", "ui") for the caller and an optional context, then signs it
// @Tags tokens
// @Accept json
// @Produce json
// @Param request body services.IssueTokenRequest true "Token request"
// @Success 201 {object} services.TokenResponse
// @Failure 400 {object} ErrorResponse "Bad request or unknown workflow"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User or context not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /tokens [post]
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req services.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Issuing token", "workflows", req.Workflows)

	response, err := h.service.Issue(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}
