package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "question-bank-service"
	EventVersion = "1.0"
)

type EventType string

const (
	QuestionBankCreated           EventType = "question_bank.created"
	QuestionBankUpdated           EventType = "question_bank.updated"
	QuestionBankDeleted           EventType = "question_bank.deleted"
	QuestionBankCleared           EventType = "question_bank.cleared"
	QuestionBankBookmarked        EventType = "question_bank.bookmarked"
	QuestionBankAlignmentsUpdated EventType = "question_bank.alignments_updated"
	QuestionsSelected             EventType = "question_bank.questions_selected"
)

// Event is the envelope every message on the events topic carries
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes lifecycle events of question banks
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type QuestionBankEvent struct {
	BankID      uint   `json:"bank_id"`
	ContextType string `json:"context_type"`
	ContextID   uint   `json:"context_id"`
	Title       string `json:"title,omitempty"`
	UserID      string `json:"user_id"`
}

type BookmarkEvent struct {
	BankID     uint   `json:"bank_id"`
	UserID     string `json:"user_id"`
	Bookmarked bool   `json:"bookmarked"`
}

type AlignmentsEvent struct {
	BankID     uint   `json:"bank_id"`
	UserID     string `json:"user_id"`
	OutcomeIDs []uint `json:"outcome_ids"`
	Removed    int    `json:"removed"`
}

type SelectionEvent struct {
	BankID      uint   `json:"bank_id"`
	QuizID      uint   `json:"quiz_id"`
	QuizGroupID uint   `json:"quiz_group_id"`
	QuestionIDs []uint `json:"question_ids"`
}
