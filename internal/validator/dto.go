package validator

import (
	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// CreateQuestionBankRequest creates a bank in an account or course
type CreateQuestionBankRequest struct {
	ContextType models.ContextType `json:"context_type" validate:"required,context_type"`
	ContextID   uint               `json:"context_id" validate:"required"`
	Title       string             `json:"title" validate:"bank_title"`
	MigrationID *string            `json:"migration_id" validate:"omitempty,max=255"`
}

// UpdateQuestionBankRequest renames a bank; a blank title is re-defaulted
type UpdateQuestionBankRequest struct {
	Title *string `json:"title" validate:"omitempty,bank_title"`
}

// SelectForSubmissionRequest draws questions from a bank into a quiz group
type SelectForSubmissionRequest struct {
	BankID         uint   `json:"-"`
	QuizID         uint   `json:"quiz_id" validate:"required"`
	QuizGroupID    uint   `json:"quiz_group_id" validate:"required"`
	Count          int    `json:"count" validate:"gte=0"`
	ExcludeIDs     []uint `json:"exclude_ids"`
	DuplicateIndex int    `json:"duplicate_index" validate:"gte=0"`
}

// AlignmentInput links a bank to one learning outcome
type AlignmentInput struct {
	OutcomeID    uint     `json:"outcome_id" validate:"required"`
	MasteryScore *float64 `json:"mastery_score" validate:"omitempty,gte=0,lte=1"`
}

// SetAlignmentsRequest replaces the bank's alignments; an empty list removes them all
type SetAlignmentsRequest struct {
	Alignments []AlignmentInput `json:"alignments" validate:"dive"`
}

// Mastery returns the request as outcome id -> mastery score
func (r *SetAlignmentsRequest) Mastery() map[uint]*float64 {
	out := make(map[uint]*float64, len(r.Alignments))
	for _, a := range r.Alignments {
		out[a.OutcomeID] = a.MasteryScore
	}
	return out
}

// IssueTokenRequest asks for a signed token carrying the named workflows
type IssueTokenRequest struct {
	Workflows   []string            `json:"workflows" validate:"required,min=1,dive,required"`
	ContextType *models.ContextType `json:"context_type" validate:"omitempty,context_type"`
	ContextID   *uint               `json:"context_id" validate:"required_with=ContextType"`
}

// ContextRef returns the requested context, nil when none was given
func (r *IssueTokenRequest) ContextRef() *models.ContextRef {
	if r.ContextType == nil || r.ContextID == nil {
		return nil
	}
	contextType, _ := models.ParseContextType(string(*r.ContextType))
	ref := models.ContextRef{Type: contextType, ID: *r.ContextID}
	return &ref
}
