package postgres

import (
	"context"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"gorm.io/gorm"
)

type contextRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewContextRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ContextRepository {
	return &contextRepository{db: db, cacheManager: cacheManager}
}

// GetAccount is cached; accounts are owned by another service
func (r *contextRepository) GetAccount(ctx context.Context, tx *gorm.DB, id uint) (*models.Account, error) {
	db := pickDB(r.db, tx)
	var account models.Account

	err := r.cacheManager.Context.CacheOrExecute(ctx, cache.ContextKey(models.AccountRef(id)), &account, cache.ContextCacheConfig.TTL, func() (interface{}, error) {
		var dbAccount models.Account
		if err := db.WithContext(ctx).First(&dbAccount, id).Error; err != nil {
			return nil, handleDBError(err, "get account by id")
		}
		return &dbAccount, nil
	})
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *contextRepository) GetCourse(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	db := pickDB(r.db, tx)
	var course models.Course

	err := r.cacheManager.Context.CacheOrExecute(ctx, cache.ContextKey(models.CourseRef(id)), &course, cache.ContextCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := db.WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, handleDBError(err, "get course by id")
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}

	return &course, nil
}

// GetMemberships returns the user's memberships in any of the given contexts
func (r *contextRepository) GetMemberships(ctx context.Context, tx *gorm.DB, userID string, refs []models.ContextRef) ([]*models.ContextMembership, error) {
	memberships := []*models.ContextMembership{}
	if len(refs) == 0 {
		return memberships, nil
	}

	var accountIDs, courseIDs []uint
	for _, ref := range refs {
		switch ref.Type {
		case models.ContextAccount:
			accountIDs = append(accountIDs, ref.ID)
		case models.ContextCourse:
			courseIDs = append(courseIDs, ref.ID)
		}
	}

	db := pickDB(r.db, tx)
	scope := db.Session(&gorm.Session{NewDB: true}).Where("1 = 0")
	if len(accountIDs) > 0 {
		scope = scope.Or("context_type = ? AND context_id IN ?", models.ContextAccount, accountIDs)
	}
	if len(courseIDs) > 0 {
		scope = scope.Or("context_type = ? AND context_id IN ?", models.ContextCourse, courseIDs)
	}

	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(scope).
		Find(&memberships).Error; err != nil {
		return nil, handleDBError(err, "get memberships")
	}

	return memberships, nil
}
