package repositories

import "context"

// Repository aggregates the repositories this service owns
type Repository interface {
	// Question bank domain
	QuestionBank() QuestionBankRepository
	Question() QuestionRepository
	QuizQuestion() QuizQuestionRepository
	Alignment() AlignmentRepository

	// Owning contexts and memberships
	Context() ContextRepository

	// User domain (read-only, identity provider)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
