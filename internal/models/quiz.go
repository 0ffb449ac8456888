package models

import (
	"time"

	"gorm.io/datatypes"
)

type Quiz struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	ContextType ContextType `json:"context_type" gorm:"not null;size:20"`
	ContextID   uint        `json:"context_id" gorm:"not null;index"`
	Title       string      `json:"title" gorm:"not null;size:255"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (q *Quiz) ContextRef() ContextRef {
	return ContextRef{Type: q.ContextType, ID: q.ContextID}
}

// QuizGroup is a pick-N section of a quiz, optionally backed by a question bank.
type QuizGroup struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	QuizID         uint      `json:"quiz_id" gorm:"not null;index"`
	Name           string    `json:"name" gorm:"size:255"`
	PickCount      int       `json:"pick_count" gorm:"default:1"`
	QuestionPoints *float64  `json:"question_points"`
	Position       *int      `json:"position"`
	QuestionBankID *uint     `json:"question_bank_id" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DrawsFrom reports whether the group belongs to the quiz and is backed by the bank
func (g *QuizGroup) DrawsFrom(quizID, bankID uint) bool {
	return g.QuizID == quizID && g.QuestionBankID != nil && *g.QuestionBankID == bankID
}

// QuizQuestion binds a bank question into a quiz. One row per
// (question, quiz, quiz group, duplicate index).
type QuizQuestion struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	QuizID         uint `json:"quiz_id" gorm:"not null;uniqueIndex:idx_quiz_question_binding"`
	QuizGroupID    uint `json:"quiz_group_id" gorm:"not null;uniqueIndex:idx_quiz_question_binding"`
	QuestionID     uint `json:"question_id" gorm:"not null;uniqueIndex:idx_quiz_question_binding"`
	DuplicateIndex int  `json:"duplicate_index" gorm:"not null;default:0;uniqueIndex:idx_quiz_question_binding"`

	QuestionData  datatypes.JSON `json:"question_data" gorm:"type:jsonb"`
	WorkflowState WorkflowState  `json:"workflow_state" gorm:"not null;size:20;default:active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BindingKey is the natural key used for idempotent binding.
type BindingKey struct {
	QuestionID     uint
	QuizID         uint
	QuizGroupID    uint
	DuplicateIndex int
}

func (q *QuizQuestion) Key() BindingKey {
	return BindingKey{
		QuestionID:     q.QuestionID,
		QuizID:         q.QuizID,
		QuizGroupID:    q.QuizGroupID,
		DuplicateIndex: q.DuplicateIndex,
	}
}

// NewQuizQuestion copies the question payload into a fresh binding.
func NewQuizQuestion(question *Question, quizID, quizGroupID uint, duplicateIndex int) *QuizQuestion {
	return &QuizQuestion{
		QuizID:         quizID,
		QuizGroupID:    quizGroupID,
		QuestionID:     question.ID,
		DuplicateIndex: duplicateIndex,
		QuestionData:   question.QuestionData,
		WorkflowState:  StateActive,
	}
}
