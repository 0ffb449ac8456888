package models

import (
	"time"
)

type WorkflowState string

const (
	StateActive              WorkflowState = "active"
	StateDeleted             WorkflowState = "deleted"
	StateIndependentlyEdited WorkflowState = "independently_edited"
)

const (
	MaxTitleLength    = 255
	UnfiledBankTitle  = "Unfiled Questions"
	DefaultTitleStart = "No Name - "
)

type QuestionBank struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Owning context
	ContextType ContextType `json:"context_type" gorm:"not null;size:20;index:idx_question_banks_context"`
	ContextID   uint        `json:"context_id" gorm:"not null;index:idx_question_banks_context"`

	Title       string  `json:"title" gorm:"not null;size:255" validate:"required,max=255"`
	MigrationID *string `json:"migration_id,omitempty" gorm:"size:255;index"`

	// Lifecycle
	WorkflowState WorkflowState `json:"workflow_state" gorm:"not null;size:20;default:active;index"`
	DeletedAt     *time.Time    `json:"deleted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions  []Question         `json:"questions,omitempty" gorm:"foreignKey:QuestionBankID"`
	QuizGroups []QuizGroup        `json:"quiz_groups,omitempty" gorm:"foreignKey:QuestionBankID"`
	Alignments []OutcomeAlignment `json:"alignments,omitempty" gorm:"foreignKey:QuestionBankID"`
	Bookmarks  []QuestionBankUser `json:"-" gorm:"foreignKey:QuestionBankID"`
}

func (b *QuestionBank) ContextRef() ContextRef {
	return ContextRef{Type: b.ContextType, ID: b.ContextID}
}

func (b *QuestionBank) SetContext(ref ContextRef) {
	b.ContextType = ref.Type
	b.ContextID = ref.ID
}

func (b *QuestionBank) IsActive() bool  { return b.WorkflowState == StateActive }
func (b *QuestionBank) IsDeleted() bool { return b.WorkflowState == StateDeleted }

// MarkDeleted flips the bank to deleted. The first deletion time is preserved.
func (b *QuestionBank) MarkDeleted(now time.Time) {
	b.WorkflowState = StateDeleted
	if b.DeletedAt == nil {
		b.DeletedAt = &now
	}
}

// DefaultTitle is used whenever a bank would otherwise be saved without a title.
func DefaultTitle(contextName string) string {
	return DefaultTitleStart + contextName
}

// QuestionBankUser records that a user bookmarked a bank.
type QuestionBankUser struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	QuestionBankID uint      `json:"question_bank_id" gorm:"not null;uniqueIndex:idx_bank_user_bookmark"`
	UserID         string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_bank_user_bookmark;index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
