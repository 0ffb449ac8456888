package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestQuestionPostgreSQL_SampleIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionPostgreSQL(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	t.Run("NonPositiveCountSkipsQuery", func(t *testing.T) {
		ids, err := repo.SampleIDs(ctx, nil, repositories.RandomQuestionFilters{BankID: 1, Count: 0})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("RandomWithExclusions", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id" FROM "questions" WHERE \(question_bank_id = \$1 AND workflow_state = \$2\) AND id NOT IN \(\$3\) ORDER BY RANDOM\(\) LIMIT`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5).AddRow(1).AddRow(4))

		ids, err := repo.SampleIDs(ctx, nil, repositories.RandomQuestionFilters{BankID: 1, Count: 3, ExcludeIDs: []uint{2}})
		require.NoError(t, err)
		assert.Equal(t, []uint{5, 1, 4}, ids)
	})

	t.Run("NoExclusions", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id" FROM "questions" WHERE question_bank_id = \$1 AND workflow_state = \$2 ORDER BY RANDOM\(\) LIMIT`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ids, err := repo.SampleIDs(ctx, nil, repositories.RandomQuestionFilters{BankID: 1, Count: 3})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionPostgreSQL_LockByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionPostgreSQL(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	t.Run("OnlyActiveRowsOfTheBank", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "questions" WHERE id IN \(\$1,\$2,\$3\) AND question_bank_id = \$4 AND workflow_state = \$5 ORDER BY id ASC FOR SHARE`).
			WithArgs(1, 4, 5, 9, models.StateActive).
			WillReturnRows(sqlmock.NewRows([]string{"id", "question_bank_id", "workflow_state"}).
				AddRow(1, 9, "active").
				AddRow(4, 9, "active").
				AddRow(5, 9, "active"))

		questions, err := repo.LockByIDs(ctx, nil, 9, []uint{1, 4, 5})
		require.NoError(t, err)
		require.Len(t, questions, 3)
		assert.Equal(t, uint(1), questions[0].ID)
	})

	t.Run("RetiredRowsAreLeftOut", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "questions" WHERE id IN .* AND question_bank_id = .* AND workflow_state = .* FOR SHARE`).
			WithArgs(1, 4, 5, 9, models.StateActive).
			WillReturnRows(sqlmock.NewRows([]string{"id", "question_bank_id", "workflow_state"}).
				AddRow(1, 9, "active"))

		questions, err := repo.LockByIDs(ctx, nil, 9, []uint{1, 4, 5})
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, models.StateActive, questions[0].WorkflowState)
	})

	t.Run("NoIDsSkipsQuery", func(t *testing.T) {
		empty, err := repo.LockByIDs(ctx, nil, 9, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizQuestionRepository_FindOrCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizQuestionRepository(db)
	ctx := context.Background()
	question := &models.Question{ID: 3, QuestionData: []byte(`{"question_text":"2+2?"}`)}

	t.Run("Inserted", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO "quiz_questions" .* ON CONFLICT \("quiz_id","quiz_group_id","question_id","duplicate_index"\) DO NOTHING RETURNING "id"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

		bound, err := repo.FindOrCreate(ctx, nil, models.NewQuizQuestion(question, 7, 8, 0))
		require.NoError(t, err)
		assert.Equal(t, uint(12), bound.ID)
	})

	t.Run("Existing", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO "quiz_questions" .* ON CONFLICT .* DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT \* FROM "quiz_questions" WHERE quiz_id = \$1 AND quiz_group_id = \$2 AND question_id = \$3 AND duplicate_index = \$4`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "quiz_group_id", "question_id", "duplicate_index"}).
				AddRow(12, 7, 8, 3, 0))

		bound, err := repo.FindOrCreate(ctx, nil, models.NewQuizQuestion(question, 7, 8, 0))
		require.NoError(t, err)
		assert.Equal(t, uint(12), bound.ID)
		assert.Equal(t, uint(3), bound.QuestionID)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizQuestionRepository_QuizLookups(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuizQuestionRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "quiz_groups" WHERE "quiz_groups"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "question_bank_id"}).AddRow(8, 7, 4))
	group, err := repo.GetGroup(ctx, nil, 8)
	require.NoError(t, err)
	assert.True(t, group.DrawsFrom(7, 4))
	assert.False(t, group.DrawsFrom(7, 5))

	mock.ExpectQuery(`SELECT \* FROM "quizzes" WHERE "quizzes"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetQuiz(ctx, nil, 99)
	assert.True(t, repositories.IsNotFoundError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_SoftDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	t.Run("KeepsFirstDeletionTime", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "question_banks" SET .*"deleted_at"=COALESCE\(deleted_at, \$1\).*WHERE id = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SoftDelete(ctx, nil, 4, time.Now()))
	})

	t.Run("MissingBank", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "question_banks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(ctx, nil, 99, time.Now())
		assert.True(t, repositories.IsNotFoundError(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_UpdateTitle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	t.Run("WritesOnlyTheTitle", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "question_banks" SET "title"=\$1,"updated_at"=\$2 WHERE id = \$3 AND workflow_state = \$4$`).
			WithArgs("Renamed", sqlmock.AnyArg(), 4, models.StateActive).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateTitle(ctx, nil, 4, "Renamed"))
	})

	t.Run("DeletedBankIsNotRevived", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "question_banks" SET "title"=\$1,"updated_at"=\$2 WHERE id = \$3 AND workflow_state = \$4$`).
			WithArgs("Renamed", sqlmock.AnyArg(), 4, models.StateActive).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateTitle(ctx, nil, 4, "Renamed")
		assert.True(t, repositories.IsNotFoundError(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_ReloadAndLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "question_banks" WHERE "question_banks"\."id" = \$1 ORDER BY`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workflow_state"}).AddRow(4, "deleted"))
	bank, err := repo.Reload(ctx, nil, 4)
	require.NoError(t, err)
	assert.True(t, bank.IsDeleted())

	mock.ExpectQuery(`SELECT \* FROM "question_banks" WHERE "question_banks"\."id" = \$1 .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workflow_state"}).AddRow(4, "active"))
	bank, err = repo.LockForShare(ctx, nil, 4)
	require.NoError(t, err)
	assert.True(t, bank.IsActive())

	mock.ExpectQuery(`SELECT \* FROM "question_banks" .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.LockForShare(ctx, nil, 99)
	assert.True(t, repositories.IsNotFoundError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))

	contextType := models.ContextCourse
	contextID := uint(12)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "question_banks" WHERE question_banks.context_type = \$1 AND question_banks.context_id = \$2 AND question_banks.workflow_state = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "question_banks" WHERE .* ORDER BY question_banks.title ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "context_type", "context_id", "title", "workflow_state"}).
			AddRow(1, "Course", 12, "Algebra", "active").
			AddRow(2, "Course", 12, "Geometry", "active"))

	banks, total, err := repo.List(context.Background(), nil, repositories.QuestionBankFilters{
		ContextType: &contextType,
		ContextID:   &contextID,
		SortBy:      "title",
		SortOrder:   "asc",
		Limit:       20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, banks, 2)
	assert.Equal(t, "Algebra", banks[0].Title)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_Bookmarks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO "question_bank_users" .* ON CONFLICT \("question_bank_id","user_id"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	require.NoError(t, repo.AddBookmark(ctx, nil, 3, "u-1"))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "question_bank_users" WHERE question_bank_id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	bookmarked, err := repo.IsBookmarked(ctx, nil, 3, "u-1")
	require.NoError(t, err)
	assert.True(t, bookmarked)

	mock.ExpectExec(`DELETE FROM "question_bank_users" WHERE question_bank_id = \$1 AND user_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RemoveBookmark(ctx, nil, 3, "u-1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionBankRepository_ClearQuestionsAndGroups(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuestionBankRepository(db, cache.NewCacheManager(nil))

	mock.ExpectExec(`DELETE FROM "questions" WHERE question_bank_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "quiz_groups" WHERE question_bank_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearQuestionsAndGroups(context.Background(), nil, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlignmentRepository_MarkAllDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlignmentRepository(db)

	mock.ExpectExec(`UPDATE "outcome_alignments" SET "workflow_state"=\$1,"updated_at"=\$2 WHERE question_bank_id = \$3 AND workflow_state <> \$4`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkAllDeleted(context.Background(), nil, 3))
	require.NoError(t, repo.MarkDeleted(context.Background(), nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContextRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContextRepository(db, cache.NewCacheManager(nil))
	ctx := context.Background()

	t.Run("GetCourseNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "courses" WHERE "courses"."id" = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetCourse(ctx, nil, 404)
		assert.True(t, repositories.IsNotFoundError(err))
	})

	t.Run("GetMemberships", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "context_memberships" WHERE user_id = \$1 AND \(1 = 0 OR \(context_type = \$2 AND context_id IN \(\$3\)\) OR \(context_type = \$4 AND context_id IN \(\$5\)\)\)`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "context_type", "context_id", "role"}).
				AddRow(1, "u-1", "Account", 2, "account_admin"))

		memberships, err := repo.GetMemberships(ctx, nil, "u-1", []models.ContextRef{models.AccountRef(2), models.CourseRef(12)})
		require.NoError(t, err)
		require.Len(t, memberships, 1)
		assert.Equal(t, models.MembershipAccountAdmin, memberships[0].Role)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
