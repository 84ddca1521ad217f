package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

// Every call receives the verified caller explicitly.

type IdentityService interface {
	RegisterTenant(ctx context.Context, req *models.RegisterTenantRequest) (*models.TokenResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	GetTenant(ctx context.Context, caller auth.Identity) (*models.Tenant, error)

	RegisterUser(ctx context.Context, caller auth.Identity, req *models.RegisterUserRequest) (*models.User, error)
	GetUser(ctx context.Context, caller auth.Identity, id string) (*models.User, error)
	ListUsers(ctx context.Context, caller auth.Identity, filters repositories.UserFilters) ([]*models.User, int64, error)
	UpdateUser(ctx context.Context, caller auth.Identity, id string, req *models.UserUpdateRequest) (*models.User, error)
	DeleteUser(ctx context.Context, caller auth.Identity, id string) error
}

type ImportService interface {
	// BulkRegisterUsers creates one user with role per valid spreadsheet row
	BulkRegisterUsers(ctx context.Context, caller auth.Identity, role models.UserRole, file io.Reader) (*models.BulkImportResult, error)
}

type SubjectService interface {
	Create(ctx context.Context, caller auth.Identity, req *models.SubjectCreateRequest) (*models.Subject, error)
	Get(ctx context.Context, caller auth.Identity, id uint) (*models.Subject, error)
	List(ctx context.Context, caller auth.Identity, params models.ListParams) ([]*models.Subject, int64, error)
	Update(ctx context.Context, caller auth.Identity, id uint, req *models.SubjectUpdateRequest) (*models.Subject, error)
	Delete(ctx context.Context, caller auth.Identity, id uint) error
}

type QuestionService interface {
	Create(ctx context.Context, caller auth.Identity, req *models.QuestionCreateRequest) (*models.Question, error)
	CreateBatch(ctx context.Context, caller auth.Identity, req *models.QuestionBatchRequest) ([]*models.Question, error)
	Get(ctx context.Context, caller auth.Identity, id uint) (*models.Question, error)
	List(ctx context.Context, caller auth.Identity, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	Update(ctx context.Context, caller auth.Identity, id uint, req *models.QuestionUpdateRequest) (*models.Question, error)
	Delete(ctx context.Context, caller auth.Identity, id uint) error
}

type ExamService interface {
	Create(ctx context.Context, caller auth.Identity, req *models.ExamCreateRequest) (*models.Exam, error)
	Get(ctx context.Context, caller auth.Identity, id uint) (*models.Exam, error)
	List(ctx context.Context, caller auth.Identity, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
	Update(ctx context.Context, caller auth.Identity, id uint, req *models.ExamUpdateRequest) (*models.Exam, error)
	Delete(ctx context.Context, caller auth.Identity, id uint) error
	// GetPaper returns the exam with its questions in exam order. Students never see correct options.
	GetPaper(ctx context.Context, caller auth.Identity, id uint) (*models.ExamPaper, error)
}

// AttemptService runs the attempt state machine
type AttemptService interface {
	Start(ctx context.Context, caller auth.Identity, examID uint) (*models.StartAttemptResponse, error)
	SaveProgress(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) error
	Submit(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) (*models.SubmitAttemptResponse, error)

	Get(ctx context.Context, caller auth.Identity, attemptID uint) (*models.Attempt, error)
	ListByExam(ctx context.Context, caller auth.Identity, examID uint, params models.ListParams) ([]*models.Attempt, int64, error)
	ListMine(ctx context.Context, caller auth.Identity, params models.ListParams) ([]*models.Attempt, int64, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Identity() IdentityService
	Import() ImportService
	Subject() SubjectService
	Question() QuestionService
	Exam() ExamService
	Attempt() AttemptService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
