package postgres

import (
	"context"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type quizQuestionRepository struct {
	db *gorm.DB
}

func NewQuizQuestionRepository(db *gorm.DB) repositories.QuizQuestionRepository {
	return &quizQuestionRepository{db: db}
}

var bindingColumns = []clause.Column{
	{Name: "quiz_id"},
	{Name: "quiz_group_id"},
	{Name: "question_id"},
	{Name: "duplicate_index"},
}

// FindOrCreate inserts the binding unless one already exists for its key,
// in which case the stored row is returned.
func (r *quizQuestionRepository) FindOrCreate(ctx context.Context, tx *gorm.DB, quizQuestion *models.QuizQuestion) (*models.QuizQuestion, error) {
	db := pickDB(r.db, tx)

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: bindingColumns, DoNothing: true}).
		Create(quizQuestion)
	if result.Error != nil {
		return nil, handleDBError(result.Error, "create quiz question")
	}
	if result.RowsAffected > 0 && quizQuestion.ID != 0 {
		return quizQuestion, nil
	}

	var existing models.QuizQuestion
	if err := db.WithContext(ctx).
		Where("quiz_id = ? AND quiz_group_id = ? AND question_id = ? AND duplicate_index = ?",
			quizQuestion.QuizID, quizQuestion.QuizGroupID, quizQuestion.QuestionID, quizQuestion.DuplicateIndex).
		First(&existing).Error; err != nil {
		return nil, handleDBError(err, "find quiz question")
	}

	return &existing, nil
}

func (r *quizQuestionRepository) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizQuestion, error) {
	db := pickDB(r.db, tx)
	var quizQuestions []*models.QuizQuestion

	if err := db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("id ASC").
		Find(&quizQuestions).Error; err != nil {
		return nil, handleDBError(err, "list quiz questions")
	}

	return quizQuestions, nil
}

func (r *quizQuestionRepository) GetQuiz(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	db := pickDB(r.db, tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, handleDBError(err, "get quiz")
	}
	return &quiz, nil
}

func (r *quizQuestionRepository) GetGroup(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizGroup, error) {
	db := pickDB(r.db, tx)
	var group models.QuizGroup
	if err := db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, handleDBError(err, "get quiz group")
	}
	return &group, nil
}
