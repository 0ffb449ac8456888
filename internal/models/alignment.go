package models

import "time"

type LearningOutcome struct {
	ID               uint        `json:"id" gorm:"primaryKey"`
	ShortDescription string      `json:"short_description" gorm:"not null;size:255"`
	ContextType      ContextType `json:"context_type" gorm:"size:20"`
	ContextID        uint        `json:"context_id" gorm:"index"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// OutcomeAlignment links a question bank to a learning outcome.
type OutcomeAlignment struct {
	ID                uint          `json:"id" gorm:"primaryKey"`
	QuestionBankID    uint          `json:"question_bank_id" gorm:"not null;index"`
	LearningOutcomeID uint          `json:"learning_outcome_id" gorm:"not null;index"`
	MasteryScore      *float64      `json:"mastery_score"`
	WorkflowState     WorkflowState `json:"workflow_state" gorm:"not null;size:20;default:active;index"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	LearningOutcome *LearningOutcome `json:"learning_outcome,omitempty" gorm:"foreignKey:LearningOutcomeID"`
}

func (a *OutcomeAlignment) IsDeleted() bool { return a.WorkflowState == StateDeleted }
