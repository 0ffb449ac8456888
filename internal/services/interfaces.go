package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/policy"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type CreateQuestionBankRequest = validator.CreateQuestionBankRequest
type UpdateQuestionBankRequest = validator.UpdateQuestionBankRequest
type SelectForSubmissionRequest = validator.SelectForSubmissionRequest
type SetAlignmentsRequest = validator.SetAlignmentsRequest
type IssueTokenRequest = validator.IssueTokenRequest

type QuestionBankResponse struct {
	*models.QuestionBank
	ContextCode            string         `json:"context_code"`
	CachedContextShortName string         `json:"cached_context_short_name"`
	QuestionCount          int64          `json:"question_count"`
	Bookmarked             bool           `json:"bookmarked"`
	Permissions            []policy.Right `json:"permissions"`
}

type QuestionBankListResponse struct {
	Banks []*QuestionBankResponse `json:"banks"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

type QuestionBankRightsResponse struct {
	BankID uint           `json:"bank_id"`
	Rights []policy.Right `json:"rights"`
}

type SelectionResponse struct {
	BankID        uint                   `json:"bank_id"`
	QuizID        uint                   `json:"quiz_id"`
	QuizGroupID   uint                   `json:"quiz_group_id"`
	QuizQuestions []*models.QuizQuestion `json:"quiz_questions"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Workflows []string  `json:"workflows"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ===== SERVICE INTERFACES =====

type QuestionBankService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuestionBankRequest, userID string) (*QuestionBankResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionBankResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionBankRequest, userID string) (*QuestionBankResponse, error)
	List(ctx context.Context, filters repositories.QuestionBankFilters, userID string) (*QuestionBankListResponse, error)
	Rights(ctx context.Context, id uint, userID string) (*QuestionBankRightsResponse, error)

	// Lifecycle
	Destroy(ctx context.Context, id uint, userID string) error
	ClearForReplacement(ctx context.Context, id uint, userID string) error
	UnfiledForContext(ctx context.Context, ref models.ContextRef, userID string) (*QuestionBankResponse, error)

	// Bookmarks
	Bookmark(ctx context.Context, id uint, userID string, bookmark bool) error
	IsBookmarked(ctx context.Context, id uint, userID string) (bool, error)
	ListBookmarked(ctx context.Context, userID string, filters repositories.QuestionBankFilters) (*QuestionBankListResponse, error)

	// Outcome alignments
	SetAlignments(ctx context.Context, id uint, req *SetAlignmentsRequest, userID string) ([]*models.OutcomeAlignment, error)
	GetAlignments(ctx context.Context, id uint, userID string) ([]*models.OutcomeAlignment, error)

	// Questions
	QuestionCount(ctx context.Context, id uint, userID string) (int64, error)
	SelectQuestions(ctx context.Context, req *SelectForSubmissionRequest, userID string) (*SelectionResponse, error)
}

// QuestionBankSampler binds a random subset of a bank's questions into a quiz group
type QuestionBankSampler interface {
	SelectForSubmission(ctx context.Context, req *SelectForSubmissionRequest) ([]*models.QuizQuestion, error)
}

// CapabilityService resolves what a user may do in an account or course
type CapabilityService interface {
	ResolveContext(ctx context.Context, ref models.ContextRef) (*models.ContextInfo, error)
	ContextCapabilities(ctx context.Context, ref models.ContextRef, userID string) (policy.CapabilitySet, error)
	BankRights(ctx context.Context, bank *models.QuestionBank, userID string) (policy.RightSet, error)
}

type TokenService interface {
	Issue(ctx context.Context, req *IssueTokenRequest, userID string) (*TokenResponse, error)
}

type ExportService interface {
	ExportQuestions(ctx context.Context, bankID uint, userID string, w io.Writer) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	QuestionBank() QuestionBankService
	Sampler() QuestionBankSampler
	Capability() CapabilityService
	Token() TokenService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
