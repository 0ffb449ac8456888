package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type questionBankRepository struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
	invalidator  *bankInvalidator
}

func NewQuestionBankRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionBankRepository {
	return newQuestionBankRepository(db, cacheManager, newBankInvalidator(cacheManager))
}

func newQuestionBankRepository(db *gorm.DB, cacheManager *cache.CacheManager, invalidator *bankInvalidator) *questionBankRepository {
	return &questionBankRepository{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
		invalidator:  invalidator,
	}
}

var bankSortColumns = map[string]string{
	"title":      "question_banks.title",
	"created_at": "question_banks.created_at",
	"updated_at": "question_banks.updated_at",
	"id":         "question_banks.id",
}

// ===== BASIC CRUD OPERATIONS =====

func (r *questionBankRepository) Create(ctx context.Context, tx *gorm.DB, bank *models.QuestionBank) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(bank).Error; err != nil {
		return r.handleDBError(err, "create question bank")
	}
	return nil
}

// GetByID reads through the bank cache unless running inside a transaction
func (r *questionBankRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	if tx != nil {
		return r.fetchByID(ctx, tx, id)
	}

	var bank models.QuestionBank
	err := r.cacheManager.Bank.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &bank, cache.BankCacheConfig.TTL, func() (interface{}, error) {
		return r.fetchByID(ctx, r.db, id)
	})
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// Reload reads the bank from the database, never from the cache
func (r *questionBankRepository) Reload(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	return r.fetchByID(ctx, r.getDB(tx), id)
}

// LockForShare reads the bank under FOR SHARE, blocking a concurrent soft
// delete until the caller's transaction ends
func (r *questionBankRepository) LockForShare(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	db := r.getDB(tx)
	var bank models.QuestionBank
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&bank, id).Error; err != nil {
		return nil, r.handleDBError(err, "lock question bank")
	}
	return &bank, nil
}

func (r *questionBankRepository) fetchByID(ctx context.Context, db *gorm.DB, id uint) (*models.QuestionBank, error) {
	var bank models.QuestionBank
	if err := db.WithContext(ctx).First(&bank, id).Error; err != nil {
		return nil, r.handleDBError(err, "get question bank by id")
	}
	return &bank, nil
}

// UpdateTitle renames an active bank. Only the title and updated_at are
// written; a deleted or missing bank yields ErrNotFound.
func (r *questionBankRepository) UpdateTitle(ctx context.Context, tx *gorm.DB, id uint, title string) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuestionBank{}).
		Where("id = ? AND workflow_state = ?", id, models.StateActive).
		Updates(map[string]interface{}{"title": title})
	if result.Error != nil {
		return r.handleDBError(result.Error, "update question bank title")
	}
	if result.RowsAffected == 0 {
		return r.handleDBError(repositories.ErrNotFound, "update question bank title")
	}

	r.invalidator.invalidate(ctx, id)
	return nil
}

// SoftDelete flips the bank to deleted. An existing deleted_at is kept.
func (r *questionBankRepository) SoftDelete(ctx context.Context, tx *gorm.DB, id uint, deletedAt time.Time) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.QuestionBank{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"workflow_state": models.StateDeleted,
			"deleted_at":     gorm.Expr("COALESCE(deleted_at, ?)", deletedAt),
		})
	if result.Error != nil {
		return r.handleDBError(result.Error, "soft delete question bank")
	}
	if result.RowsAffected == 0 {
		return r.handleDBError(repositories.ErrNotFound, "soft delete question bank")
	}

	r.invalidator.invalidate(ctx, id)
	return nil
}

// ===== QUERY OPERATIONS =====

func (r *questionBankRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionBankFilters) ([]*models.QuestionBank, int64, error) {
	db := r.getDB(tx)
	var banks []*models.QuestionBank
	var total int64

	query := db.WithContext(ctx).Model(&models.QuestionBank{})
	query = r.helpers.ApplyBankFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleDBError(err, "count question banks")
	}

	query = r.helpers.ApplyPaginationAndSort(query, bankSortColumns, "question_banks.created_at",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&banks).Error; err != nil {
		return nil, 0, r.handleDBError(err, "list question banks")
	}

	return banks, total, nil
}

// FindByTitle returns the active bank with exactly this title in the context
func (r *questionBankRepository) FindByTitle(ctx context.Context, tx *gorm.DB, ref models.ContextRef, title string) (*models.QuestionBank, error) {
	db := r.getDB(tx)
	var bank models.QuestionBank

	if err := db.WithContext(ctx).
		Where("context_type = ? AND context_id = ? AND title = ? AND workflow_state = ?",
			ref.Type, ref.ID, title, models.StateActive).
		Order("id ASC").
		First(&bank).Error; err != nil {
		return nil, r.handleDBError(err, "find question bank by title")
	}

	return &bank, nil
}

// ===== CONTENTS =====

// ClearQuestionsAndGroups physically removes every question and quiz group of the bank
func (r *questionBankRepository) ClearQuestionsAndGroups(ctx context.Context, tx *gorm.DB, bankID uint) error {
	db := r.getDB(tx)

	if err := db.WithContext(ctx).
		Where("question_bank_id = ?", bankID).
		Delete(&models.Question{}).Error; err != nil {
		return r.handleDBError(err, "clear bank questions")
	}

	if err := db.WithContext(ctx).
		Where("question_bank_id = ?", bankID).
		Delete(&models.QuizGroup{}).Error; err != nil {
		return r.handleDBError(err, "clear bank quiz groups")
	}

	r.invalidator.invalidate(ctx, bankID)
	return nil
}

// CountActiveQuestions is served from the stats cache outside transactions
func (r *questionBankRepository) CountActiveQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error) {
	if tx != nil {
		count, err := r.helpers.CountActiveQuestions(ctx, tx, bankID)
		return count, r.handleDBError(err, "count active questions")
	}

	var count int64
	err := r.cacheManager.Stats.CacheOrExecute(ctx, cache.QuestionCountKey(bankID), &count, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		n, err := r.helpers.CountActiveQuestions(ctx, nil, bankID)
		if err != nil {
			return nil, r.handleDBError(err, "count active questions")
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *questionBankRepository) GetStats(ctx context.Context, tx *gorm.DB, bankID uint) (*repositories.QuestionBankStats, error) {
	db := r.getDB(tx)
	stats := &repositories.QuestionBankStats{}

	active, err := r.helpers.CountActiveQuestions(ctx, db, bankID)
	if err != nil {
		return nil, r.handleDBError(err, "count active questions")
	}
	stats.ActiveQuestions = active

	if err := db.WithContext(ctx).
		Model(&models.QuizGroup{}).
		Where("question_bank_id = ?", bankID).
		Count(&stats.QuizGroups).Error; err != nil {
		return nil, r.handleDBError(err, "count bank quiz groups")
	}

	if err := db.WithContext(ctx).
		Model(&models.OutcomeAlignment{}).
		Where("question_bank_id = ? AND workflow_state <> ?", bankID, models.StateDeleted).
		Count(&stats.ActiveAlignments).Error; err != nil {
		return nil, r.handleDBError(err, "count bank alignments")
	}

	if err := db.WithContext(ctx).
		Model(&models.QuestionBankUser{}).
		Where("question_bank_id = ?", bankID).
		Count(&stats.BookmarkCount).Error; err != nil {
		return nil, r.handleDBError(err, "count bank bookmarks")
	}

	return stats, nil
}

// ===== BOOKMARKS =====

// AddBookmark is idempotent on (bank, user)
func (r *questionBankRepository) AddBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error {
	db := r.getDB(tx)
	bookmark := &models.QuestionBankUser{QuestionBankID: bankID, UserID: userID}

	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_bank_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(bookmark).Error; err != nil {
		return r.handleDBError(err, "add bookmark")
	}
	return nil
}

func (r *questionBankRepository) RemoveBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Where("question_bank_id = ? AND user_id = ?", bankID, userID).
		Delete(&models.QuestionBankUser{}).Error; err != nil {
		return r.handleDBError(err, "remove bookmark")
	}
	return nil
}

func (r *questionBankRepository) IsBookmarked(ctx context.Context, tx *gorm.DB, bankID uint, userID string) (bool, error) {
	db := r.getDB(tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.QuestionBankUser{}).
		Where("question_bank_id = ? AND user_id = ?", bankID, userID).
		Count(&count).Error; err != nil {
		return false, r.handleDBError(err, "check bookmark")
	}

	return count > 0, nil
}

func (r *questionBankRepository) ListBookmarked(ctx context.Context, tx *gorm.DB, userID string, filters repositories.QuestionBankFilters) ([]*models.QuestionBank, int64, error) {
	db := r.getDB(tx)
	var banks []*models.QuestionBank
	var total int64

	query := db.WithContext(ctx).
		Model(&models.QuestionBank{}).
		Joins("INNER JOIN question_bank_users ON question_bank_users.question_bank_id = question_banks.id").
		Where("question_bank_users.user_id = ?", userID)
	query = r.helpers.ApplyBankFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleDBError(err, "count bookmarked banks")
	}

	query = r.helpers.ApplyPaginationAndSort(query, bankSortColumns, "question_banks.title",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&banks).Error; err != nil {
		return nil, 0, r.handleDBError(err, "list bookmarked banks")
	}

	return banks, total, nil
}

// ===== HELPER METHODS =====

func (r *questionBankRepository) getDB(tx *gorm.DB) *gorm.DB {
	return pickDB(r.db, tx)
}

func (r *questionBankRepository) handleDBError(err error, operation string) error {
	return handleDBError(err, operation)
}
