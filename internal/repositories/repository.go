package repositories

import "context"

// Repository aggregates all repository interfaces
type Repository interface {
	// Identity
	Tenant() TenantRepository
	User() UserRepository

	// Question bank
	Subject() SubjectRepository
	Question() QuestionRepository

	// Exam catalog
	Exam() ExamRepository

	// Attempt engine storage
	Attempt() AttemptRepository

	// WithTransaction runs fn with repositories bound to one database transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager manages repository lifecycle
type RepositoryManager interface {
	// Initialize verifies connections and migrates the schema
	Initialize() error

	GetRepository() Repository

	HealthCheck(ctx context.Context) error

	Shutdown(ctx context.Context) error
}
