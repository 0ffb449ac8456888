package postgres

import (
	"context"
	"slices"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionPostgreSQL struct {
	db          *gorm.DB
	invalidator *bankInvalidator
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return newQuestionPostgreSQL(db, newBankInvalidator(cacheManager))
}

func newQuestionPostgreSQL(db *gorm.DB, invalidator *bankInvalidator) *QuestionPostgreSQL {
	return &QuestionPostgreSQL{
		db:          db,
		invalidator: invalidator,
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question and invalidates the bank's counters
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return handleDBError(err, "create question")
	}

	q.invalidator.invalidate(ctx, question.QuestionBankID)
	return nil
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return handleDBError(err, "create questions batch")
	}

	bankIDs := make([]uint, 0, 1)
	for _, question := range questions {
		if !slices.Contains(bankIDs, question.QuestionBankID) {
			bankIDs = append(bankIDs, question.QuestionBankID)
		}
	}
	q.invalidator.invalidate(ctx, bankIDs...)
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, handleDBError(err, "get question by id")
	}
	return &question, nil
}

// ListByBank defaults to active questions when no state filter is given
func (q *QuestionPostgreSQL) ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	var total int64

	state := models.StateActive
	if filters.WorkflowState != nil {
		state = *filters.WorkflowState
	}

	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("question_bank_id = ? AND workflow_state = ?", bankID, state)
	if filters.QuestionType != nil {
		query = query.Where("question_type = ?", *filters.QuestionType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count bank questions")
	}

	query = query.Order("name ASC, position ASC, created_at ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, handleDBError(err, "list bank questions")
	}

	return questions, total, nil
}

// ===== SAMPLING =====

// SampleIDs draws up to Count random active question ids from the bank.
// Randomness comes from the database.
func (q *QuestionPostgreSQL) SampleIDs(ctx context.Context, tx *gorm.DB, filters repositories.RandomQuestionFilters) ([]uint, error) {
	if filters.Count <= 0 {
		return []uint{}, nil
	}

	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("question_bank_id = ? AND workflow_state = ?", filters.BankID, models.StateActive)
	if len(filters.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filters.ExcludeIDs)
	}

	ids := []uint{}
	if err := query.Order("RANDOM()").Limit(filters.Count).Pluck("id", &ids).Error; err != nil {
		return nil, handleDBError(err, "sample question ids")
	}

	return ids, nil
}

// LockByIDs loads the bank's active questions among ids under FOR SHARE,
// acquiring row locks in ascending id order. Rows deleted or moved since
// sampling are left out, so callers compare the result length with ids.
func (q *QuestionPostgreSQL) LockByIDs(ctx context.Context, tx *gorm.DB, bankID uint, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id IN ? AND question_bank_id = ? AND workflow_state = ?", ids, bankID, models.StateActive).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, handleDBError(err, "lock questions")
	}

	return questions, nil
}

// ===== HELPER METHODS =====

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return pickDB(q.db, tx)
}
