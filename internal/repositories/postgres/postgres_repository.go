package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager
	invalidator  *bankInvalidator

	// Repository instances
	questionBank repositories.QuestionBankRepository
	question     repositories.QuestionRepository
	quizQuestion repositories.QuizQuestionRepository
	alignment    repositories.AlignmentRepository
	context      repositories.ContextRepository
	user         repositories.UserRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := newRepository(config.DB, config.RedisClient, cacheManager)

	// User repository uses Casdoor
	repo.user = casdoor.NewUserCasdoor(config.CasdoorConfig, cacheManager)

	return repo
}

func newRepository(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager) *PostgreSQLRepository {
	return newRepositoryWithInvalidator(db, redisClient, cacheManager, newBankInvalidator(cacheManager))
}

func newRepositoryWithInvalidator(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager, invalidator *bankInvalidator) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		invalidator:  invalidator,
		questionBank: newQuestionBankRepository(db, cacheManager, invalidator),
		question:     newQuestionPostgreSQL(db, invalidator),
		quizQuestion: NewQuizQuestionRepository(db),
		alignment:    NewAlignmentRepository(db),
		context:      NewContextRepository(db, cacheManager),
	}
}

// QuestionBank returns the question bank repository
func (r *PostgreSQLRepository) QuestionBank() repositories.QuestionBankRepository {
	return r.questionBank
}

// Question returns the question repository
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.question
}

// QuizQuestion returns the quiz question repository
func (r *PostgreSQLRepository) QuizQuestion() repositories.QuizQuestionRepository {
	return r.quizQuestion
}

// Alignment returns the outcome alignment repository
func (r *PostgreSQLRepository) Alignment() repositories.AlignmentRepository {
	return r.alignment
}

// Context returns the account/course repository
func (r *PostgreSQLRepository) Context() repositories.ContextRepository {
	return r.context
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

// WithTransaction executes a function within a database transaction. Cache
// entries of banks written inside it are dropped only once it commits.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	// Nested transactions are savepoints; the outermost one flushes
	invalidator := r.invalidator
	outermost := !invalidator.deferred
	if outermost {
		invalidator = newDeferredBankInvalidator(r.cacheManager)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := newRepositoryWithInvalidator(tx, r.redisClient, r.cacheManager, invalidator)

		// User repository doesn't need transaction (it's external)
		txRepo.user = r.user

		return fn(txRepo)
	})
	if err != nil {
		return err
	}

	if outermost {
		invalidator.flush(ctx)
	}
	return nil
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.cacheManager.Enabled() {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
