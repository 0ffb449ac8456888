package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountActiveQuestions counts questions of a bank that are still active
func (h *SharedHelpers) CountActiveQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error) {
	var count int64
	err := pickDB(h.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("question_bank_id = ? AND workflow_state = ?", bankID, models.StateActive).
		Count(&count).Error
	return count, err
}

// ApplyBankFilters applies common filters to question bank queries.
// Columns are qualified so the query can be joined with bookmarks.
func (h *SharedHelpers) ApplyBankFilters(query *gorm.DB, filters repositories.QuestionBankFilters) *gorm.DB {
	if filters.ContextType != nil {
		query = query.Where("question_banks.context_type = ?", *filters.ContextType)
	}
	if filters.ContextID != nil {
		query = query.Where("question_banks.context_id = ?", *filters.ContextID)
	}
	switch {
	case filters.WorkflowState != nil:
		query = query.Where("question_banks.workflow_state = ?", *filters.WorkflowState)
	case !filters.IncludeDeleted:
		query = query.Where("question_banks.workflow_state = ?", models.StateActive)
	}
	if filters.Title != nil {
		query = query.Where("question_banks.title ILIKE ?", "%"+*filters.Title+"%")
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortKeyToColumn map[string]string, defaultColumn, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := sortKeyToColumn[sortBy]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		order = "ASC"
	}

	// Only mapped column names and constant sort orders reach the SQL
	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// handleDBError is a package-level helper for handling database errors
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// pickDB returns the transaction when one is given, otherwise the base handle
func pickDB(base, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}
