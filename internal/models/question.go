package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice_question"
	TrueFalse      QuestionType = "true_false_question"
	Essay          QuestionType = "essay_question"
	FillInBlank    QuestionType = "fill_in_multiple_blanks_question"
	Matching       QuestionType = "matching_question"
	ShortAnswer    QuestionType = "short_answer_question"
	Numerical      QuestionType = "numerical_question"
	TextOnly       QuestionType = "text_only_question"
)

type Question struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	QuestionBankID uint `json:"question_bank_id" gorm:"not null;index:idx_questions_bank_state"`

	Name         string         `json:"name" gorm:"size:255"`
	Position     *int           `json:"position"`
	QuestionType QuestionType   `json:"question_type" gorm:"size:50"`
	QuestionData datatypes.JSON `json:"question_data" gorm:"type:jsonb"`

	WorkflowState WorkflowState `json:"workflow_state" gorm:"not null;size:30;default:active;index:idx_questions_bank_state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuestionBank *QuestionBank `json:"-" gorm:"foreignKey:QuestionBankID"`
}

// QuestionText pulls the prompt out of the JSON payload, empty if absent.
func (q *Question) QuestionText() string {
	var data struct {
		QuestionText string `json:"question_text"`
	}
	if len(q.QuestionData) == 0 {
		return ""
	}
	if err := json.Unmarshal(q.QuestionData, &data); err != nil {
		return ""
	}
	return data.QuestionText
}
