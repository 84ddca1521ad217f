package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Role   *models.UserRole `json:"role"`
	Query  string           `json:"query"`
	Params models.ListParams
}

type QuestionFilters struct {
	SubjectID  *uint   `json:"subject_id"`
	Difficulty *int    `json:"difficulty"`
	Chapter    *string `json:"chapter"`
	CreatedBy  *string `json:"created_by"`
	Params     models.ListParams
}

type ExamFilters struct {
	SubjectID *uint   `json:"subject_id"`
	CreatedBy *string `json:"created_by"`
	Params    models.ListParams
}

type AttemptFilters struct {
	ExamID    *uint                 `json:"exam_id"`
	StudentID *string               `json:"student_id"`
	Status    *models.AttemptStatus `json:"status"`
	Params    models.ListParams
}

// ===== IDENTITY =====

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uint) (*models.Tenant, error)
	GetByName(ctx context.Context, name string) (*models.Tenant, error)
	SetOwner(ctx context.Context, tenantID uint, ownerID string) error
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateBatch(ctx context.Context, users []*models.User) error
	GetByID(ctx context.Context, tenantID uint, id string) (*models.User, error)
	// FindForLogin returns users matching any non-empty identifier, optionally within one tenant
	FindForLogin(ctx context.Context, username, email, phone string, tenantID *uint) ([]*models.User, error)
	// FindByContacts returns users of a tenant holding any of the emails or phone numbers
	FindByContacts(ctx context.Context, tenantID uint, emails, phones []string) ([]*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, tenantID uint, filters UserFilters) ([]*models.User, int64, error)
	// Update writes name, contacts and role. Returns ErrDuplicate on a taken email or phone.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, tenantID uint, id string) error
}

// ===== QUESTION BANK =====

type SubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetByID(ctx context.Context, tenantID, id uint) (*models.Subject, error)
	List(ctx context.Context, tenantID uint, params models.ListParams) ([]*models.Subject, int64, error)
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, tenantID, id uint) error
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, tenantID, id uint) (*models.Question, error)
	// GetByIDs returns the questions of the tenant among ids keyed by id. Unknown ids are absent.
	GetByIDs(ctx context.Context, tenantID uint, ids []uint) (map[uint]*models.Question, error)
	List(ctx context.Context, tenantID uint, filters QuestionFilters) ([]*models.Question, int64, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, tenantID, id uint) error
}

// ===== EXAM CATALOG =====

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	// GetByID reads through the exam cache
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetByIDUncached always reads the database
	GetByIDUncached(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, tenantID uint, filters ExamFilters) ([]*models.Exam, int64, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, tenantID, id uint) error
}

// ===== ATTEMPTS =====

type AttemptRepository interface {
	// Create stores a new in-progress attempt and assigns its ID.
	// Returns ErrDuplicate if the student already has an active attempt for the exam.
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// GetActive returns the in-progress attempt of a student for an exam
	GetActive(ctx context.Context, examID uint, studentID string) (*models.Attempt, error)
	// SaveAnswers replaces the answers of an in-progress attempt.
	// Returns ErrStaleState when the attempt is no longer in progress.
	SaveAnswers(ctx context.Context, id uint, answers models.AnswerSheet) error
	// Submit stores the final answers and terminal state in one conditional update.
	// Returns ErrStaleState when another submit already finalized the attempt.
	Submit(ctx context.Context, id uint, answers models.AnswerSheet, state models.Submitted) error
	List(ctx context.Context, tenantID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
}
