package postgres

import (
	"context"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
)

type alignmentRepository struct {
	db *gorm.DB
}

func NewAlignmentRepository(db *gorm.DB) repositories.AlignmentRepository {
	return &alignmentRepository{db: db}
}

func (r *alignmentRepository) ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, includeDeleted bool) ([]*models.OutcomeAlignment, error) {
	db := pickDB(r.db, tx)
	var alignments []*models.OutcomeAlignment

	query := db.WithContext(ctx).
		Preload("LearningOutcome").
		Where("question_bank_id = ?", bankID)
	if !includeDeleted {
		query = query.Where("workflow_state <> ?", models.StateDeleted)
	}

	if err := query.Order("id ASC").Find(&alignments).Error; err != nil {
		return nil, handleDBError(err, "list bank alignments")
	}

	return alignments, nil
}

func (r *alignmentRepository) Create(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error {
	db := pickDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("LearningOutcome").Create(alignment).Error; err != nil {
		return handleDBError(err, "create alignment")
	}
	return nil
}

func (r *alignmentRepository) Update(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error {
	db := pickDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("LearningOutcome").Save(alignment).Error; err != nil {
		return handleDBError(err, "update alignment")
	}
	return nil
}

func (r *alignmentRepository) MarkDeleted(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	db := pickDB(r.db, tx)
	if err := db.WithContext(ctx).
		Model(&models.OutcomeAlignment{}).
		Where("id IN ?", ids).
		Update("workflow_state", models.StateDeleted).Error; err != nil {
		return handleDBError(err, "mark alignments deleted")
	}
	return nil
}

func (r *alignmentRepository) MarkAllDeleted(ctx context.Context, tx *gorm.DB, bankID uint) error {
	db := pickDB(r.db, tx)
	if err := db.WithContext(ctx).
		Model(&models.OutcomeAlignment{}).
		Where("question_bank_id = ? AND workflow_state <> ?", bankID, models.StateDeleted).
		Update("workflow_state", models.StateDeleted).Error; err != nil {
		return handleDBError(err, "mark bank alignments deleted")
	}
	return nil
}

func (r *alignmentRepository) FindOutcomes(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.LearningOutcome, error) {
	if len(ids) == 0 {
		return []*models.LearningOutcome{}, nil
	}

	db := pickDB(r.db, tx)
	var outcomes []*models.LearningOutcome
	if err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&outcomes).Error; err != nil {
		return nil, handleDBError(err, "find learning outcomes")
	}

	return outcomes, nil
}
