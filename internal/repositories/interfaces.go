package repositories

import (
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionBankFilters struct {
	ContextType    *models.ContextType   `json:"context_type"`
	ContextID      *uint                 `json:"context_id"`
	WorkflowState  *models.WorkflowState `json:"workflow_state"`
	Title          *string               `json:"title"`
	IncludeDeleted bool                  `json:"include_deleted"`
	Limit          int                   `json:"limit"`
	Offset         int                   `json:"offset"`
	SortBy         string                `json:"sort_by"`    // "title", "created_at", "updated_at"
	SortOrder      string                `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	WorkflowState *models.WorkflowState `json:"workflow_state"`
	QuestionType  *models.QuestionType  `json:"question_type"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

// RandomQuestionFilters drives storage-side sampling of a bank.
type RandomQuestionFilters struct {
	BankID     uint   `json:"bank_id"`
	ExcludeIDs []uint `json:"exclude_ids"`
	Count      int    `json:"count"`
}

// ===== SHARED HELPER STRUCTS =====

type QuestionBankStats struct {
	ActiveQuestions  int64 `json:"active_questions"`
	QuizGroups       int64 `json:"quiz_groups"`
	ActiveAlignments int64 `json:"active_alignments"`
	BookmarkCount    int64 `json:"bookmark_count"`
}
