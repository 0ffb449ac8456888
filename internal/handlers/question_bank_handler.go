package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type QuestionBankHandler struct {
	BaseHandler
	service  services.QuestionBankService
	exporter services.ExportService
}

func NewQuestionBankHandler(service services.QuestionBankService, exporter services.ExportService, logger utils.Logger) *QuestionBankHandler {
	return &QuestionBankHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		exporter:    exporter,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateQuestionBank creates a new question bank
// @Summary Create a new question bank
// @Description Create a question bank in an account or course. A blank title defaults to "No Name - <context name>"
// @Tags question-banks
// @Accept json
// @Produce json
// @Param request body services.CreateQuestionBankRequest true "Question Bank creation request"
// @Success 201 {object} services.QuestionBankResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Context not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks [post]
func (h *QuestionBankHandler) CreateQuestionBank(c *gin.Context) {
	var req services.CreateQuestionBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating question bank", "context_type", req.ContextType, "context_id", req.ContextID)

	response, err := h.service.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetQuestionBank retrieves a question bank by ID
// @Summary Get a question bank by ID
// @Description Deleted banks are still returned, with workflow_state "deleted"
// @Tags question-banks
// @Produce json
// @Param id path int true "Question Bank ID"
// @Success 200 {object} services.QuestionBankResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id} [get]
func (h *QuestionBankHandler) GetQuestionBank(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	response, err := h.service.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateQuestionBank updates a question bank
// @Summary Update a question bank
// @Tags question-banks
// @Accept json
// @Produce json
// @Param id path int true "Question Bank ID"
// @Param request body services.UpdateQuestionBankRequest true "Question Bank update request"
// @Success 200 {object} services.QuestionBankResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Bank has been deleted"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id} [put]
func (h *QuestionBankHandler) UpdateQuestionBank(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}

	var req services.UpdateQuestionBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating question bank", "bank_id", id)

	response, err := h.service.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteQuestionBank soft-deletes a question bank
// @Summary Delete a question bank
// @Description Marks the bank deleted and retires its outcome alignments. The row is kept
// @Tags question-banks
// @Param id path int true "Question Bank ID"
// @Success 204 "No content"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id} [delete]
func (h *QuestionBankHandler) DeleteQuestionBank(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting question bank", "bank_id", id)

	if err := h.service.Destroy(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListQuestionBanks lists the active question banks of a context
// @Summary List question banks of a context
// @Tags question-banks
// @Produce json
// @Param context_type query string true "Account or Course"
// @Param context_id query int true "Context ID"
// @Param title query string false "Title filter"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param sort_by query string false "title, created_at or updated_at"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.QuestionBankListResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Context not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks [get]
func (h *QuestionBankHandler) ListQuestionBanks(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parseQuestionBankFilters(c)

	contextType, ok := models.ParseContextType(c.Query("context_type"))
	if !ok {
		h.respondError(c, http.StatusBadRequest, "Invalid context type", c.Query("context_type"))
		return
	}
	contextID, err := strconv.ParseUint(c.Query("context_id"), 10, 32)
	if err != nil || contextID == 0 {
		h.respondError(c, http.StatusBadRequest, "Invalid context ID", nil)
		return
	}
	id := uint(contextID)
	filters.ContextType = &contextType
	filters.ContextID = &id

	response, err := h.service.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetQuestionBankRights returns what the caller may do with a bank
// @Summary Get the caller's rights on a question bank
// @Tags question-banks
// @Produce json
// @Param id path int true "Question Bank ID"
// @Success 200 {object} services.QuestionBankRightsResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/rights [get]
func (h *QuestionBankHandler) GetQuestionBankRights(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	response, err := h.service.Rights(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== LIFECYCLE ENDPOINTS =====

// ClearQuestionBank removes every question and quiz group of a bank
// @Summary Clear a question bank for replacement
// @Tags question-banks
// @Param id path int true "Question Bank ID"
// @Success 204 "No content"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/clear [post]
func (h *QuestionBankHandler) ClearQuestionBank(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Clearing question bank", "bank_id", id)

	if err := h.service.ClearForReplacement(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUnfiledQuestionBank finds or creates the "Unfiled Questions" bank of a context
// @Summary Get the unfiled questions bank of a context
// @Tags question-banks
// @Produce json
// @Param type path string true "accounts or courses"
// @Param id path int true "Context ID"
// @Success 200 {object} services.QuestionBankResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Context not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /contexts/{type}/{id}/unfiled-bank [post]
func (h *QuestionBankHandler) GetUnfiledQuestionBank(c *gin.Context) {
	contextType, ok := models.ParseContextType(c.Param("type"))
	if !ok {
		h.respondError(c, http.StatusBadRequest, "Invalid context type", c.Param("type"))
		return
	}
	contextID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || contextID == 0 {
		h.respondError(c, http.StatusBadRequest, "Invalid context ID", nil)
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	ref := models.ContextRef{Type: contextType, ID: uint(contextID)}
	response, err := h.service.UnfiledForContext(c.Request.Context(), ref, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== BOOKMARK ENDPOINTS =====

// BookmarkQuestionBank bookmarks a bank for the caller
// @Summary Bookmark a question bank
// @Tags question-banks
// @Param id path int true "Question Bank ID"
// @Success 204 "No content"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/bookmark [put]
func (h *QuestionBankHandler) BookmarkQuestionBank(c *gin.Context) {
	h.setBookmark(c, true)
}

// UnbookmarkQuestionBank removes the caller's bookmark
// @Summary Remove a question bank bookmark
// @Tags question-banks
// @Param id path int true "Question Bank ID"
// @Success 204 "No content"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/bookmark [delete]
func (h *QuestionBankHandler) UnbookmarkQuestionBank(c *gin.Context) {
	h.setBookmark(c, false)
}

func (h *QuestionBankHandler) setBookmark(c *gin.Context, bookmark bool) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.service.Bookmark(c.Request.Context(), id, userID, bookmark); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListBookmarkedQuestionBanks lists the caller's bookmarked banks
// @Summary List bookmarked question banks
// @Tags question-banks
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} services.QuestionBankListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /bookmarks [get]
func (h *QuestionBankHandler) ListBookmarkedQuestionBanks(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	response, err := h.service.ListBookmarked(c.Request.Context(), userID, h.parseQuestionBankFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== ALIGNMENT ENDPOINTS =====

// GetAlignments lists the active outcome alignments of a bank
// @Summary Get outcome alignments
// @Tags question-banks
// @Produce json
// @Param id path int true "Question Bank ID"
// @Success 200 {array} models.OutcomeAlignment
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/alignments [get]
func (h *QuestionBankHandler) GetAlignments(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	alignments, err := h.service.GetAlignments(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alignments)
}

// SetAlignments replaces the outcome alignments of a bank
// @Summary Replace outcome alignments
// @Description Outcomes missing from the request are retired. Unknown outcome ids are ignored
// @Tags question-banks
// @Accept json
// @Produce json
// @Param id path int true "Question Bank ID"
// @Param request body services.SetAlignmentsRequest true "Desired alignments"
// @Success 200 {array} models.OutcomeAlignment
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/alignments [put]
func (h *QuestionBankHandler) SetAlignments(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}

	var req services.SetAlignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Setting outcome alignments", "bank_id", id, "count", len(req.Alignments))

	alignments, err := h.service.SetAlignments(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, alignments)
}

// ===== QUESTION ENDPOINTS =====

// SelectQuestions draws random questions from a bank into a quiz group
// @Summary Select questions for a quiz submission
// @Tags question-banks
// @Accept json
// @Produce json
// @Param id path int true "Question Bank ID"
// @Param request body services.SelectForSubmissionRequest true "Selection request"
// @Success 200 {object} services.SelectionResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Bank has been deleted"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/select [post]
func (h *QuestionBankHandler) SelectQuestions(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}

	var req services.SelectForSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	req.BankID = id

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Selecting questions", "bank_id", id, "quiz_id", req.QuizID, "count", req.Count)

	response, err := h.service.SelectQuestions(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExportQuestions downloads the active questions of a bank as a spreadsheet
// @Summary Export questions as xlsx
// @Tags question-banks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Question Bank ID"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /question-banks/{id}/export [get]
func (h *QuestionBankHandler) ExportQuestions(c *gin.Context) {
	id, ok := h.parseBankID(c)
	if !ok {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting questions", "bank_id", id)

	// Buffered so a failed export can still be reported as JSON
	var buf bytes.Buffer
	if err := h.exporter.ExportQuestions(c.Request.Context(), id, userID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="question_bank_%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ===== HELPER METHODS =====

func (h *QuestionBankHandler) parseBankID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		h.respondError(c, http.StatusBadRequest, "Invalid question bank ID", nil)
		return 0, false
	}
	return uint(id), true
}

func (h *QuestionBankHandler) parseQuestionBankFilters(c *gin.Context) repositories.QuestionBankFilters {
	page := 1
	size := 10

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			size = s
		}
	}

	filters := repositories.QuestionBankFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	if title := strings.TrimSpace(c.Query("title")); title != "" {
		filters.Title = &title
	}

	if sortBy := c.Query("sort_by"); sortBy != "" {
		validSortFields := map[string]bool{
			"title":      true,
			"created_at": true,
			"updated_at": true,
		}
		if validSortFields[sortBy] {
			filters.SortBy = sortBy
		}
	}

	if sortOrder := c.Query("sort_order"); sortOrder != "" {
		if sortOrder == "asc" || sortOrder == "desc" {
			filters.SortOrder = sortOrder
		}
	}

	return filters
}
