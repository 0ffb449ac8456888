package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"gorm.io/gorm"
)

// QuestionBankRepository interface for question bank operations
type QuestionBankRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, bank *models.QuestionBank) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error)
	Reload(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error)
	LockForShare(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, id uint, title string) error
	SoftDelete(ctx context.Context, tx *gorm.DB, id uint, deletedAt time.Time) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionBankFilters) ([]*models.QuestionBank, int64, error)
	FindByTitle(ctx context.Context, tx *gorm.DB, ref models.ContextRef, title string) (*models.QuestionBank, error)

	// Contents
	ClearQuestionsAndGroups(ctx context.Context, tx *gorm.DB, bankID uint) error
	CountActiveQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error)
	GetStats(ctx context.Context, tx *gorm.DB, bankID uint) (*QuestionBankStats, error)

	// Bookmarks
	AddBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error
	RemoveBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error
	IsBookmarked(ctx context.Context, tx *gorm.DB, bankID uint, userID string) (bool, error)
	ListBookmarked(ctx context.Context, tx *gorm.DB, userID string, filters QuestionBankFilters) ([]*models.QuestionBank, int64, error)
}

// QuestionRepository interface for questions stored in a bank
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)

	// ListByBank returns questions ordered by name, position, then creation time
	ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, filters QuestionFilters) ([]*models.Question, int64, error)

	// Sampling
	SampleIDs(ctx context.Context, tx *gorm.DB, filters RandomQuestionFilters) ([]uint, error)
	LockByIDs(ctx context.Context, tx *gorm.DB, bankID uint, ids []uint) ([]*models.Question, error)
}

// QuizQuestionRepository interface for question snapshots bound to a quiz
type QuizQuestionRepository interface {
	// FindOrCreate returns the existing binding for the key or inserts the given one
	FindOrCreate(ctx context.Context, tx *gorm.DB, quizQuestion *models.QuizQuestion) (*models.QuizQuestion, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizQuestion, error)

	GetQuiz(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetGroup(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizGroup, error)
}

// AlignmentRepository interface for learning outcome alignments
type AlignmentRepository interface {
	ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, includeDeleted bool) ([]*models.OutcomeAlignment, error)
	Create(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error
	Update(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error
	MarkDeleted(ctx context.Context, tx *gorm.DB, ids []uint) error
	MarkAllDeleted(ctx context.Context, tx *gorm.DB, bankID uint) error

	FindOutcomes(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.LearningOutcome, error)
}

// ContextRepository interface for owning contexts and the memberships granted in them
type ContextRepository interface {
	GetAccount(ctx context.Context, tx *gorm.DB, id uint) (*models.Account, error)
	GetCourse(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetMemberships(ctx context.Context, tx *gorm.DB, userID string, refs []models.ContextRef) ([]*models.ContextMembership, error)
}
