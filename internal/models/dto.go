package models

import "time"

// ===== IDENTITY =====

type RegisterTenantRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	OwnerName   string  `json:"ownerName" validate:"required,min=1,max=100"`
	Username    string  `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

// LoginRequest accepts any one of username, email or phone number.
type LoginRequest struct {
	Username    string `json:"username" validate:"omitempty,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Password    string `json:"password" validate:"required,max=72"`
	TenantID    *uint  `json:"tenant_id"`
}

type RegisterUserRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Email       string   `json:"email" validate:"required,email"`
	PhoneNumber *string  `json:"phone_number" validate:"omitempty,phone"`
	Password    string   `json:"password" validate:"required,min=6,max=72"`
	Role        UserRole `json:"role" validate:"required,user_role"`
}

// UserUpdateRequest changes profile fields. Passwords are not changed here.
type UserUpdateRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Email       *string   `json:"email" validate:"omitempty,email"`
	PhoneNumber *string   `json:"phone_number" validate:"omitempty,phone"`
	Role        *UserRole `json:"role" validate:"omitempty,user_role"`
	Password    *string   `json:"password"`
}

type TokenResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"userId"`
	TenantID  uint      `json:"tenant_id"`
	Role      UserRole  `json:"role"`
}

type ImportSkippedRow struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

type BulkImportResult struct {
	Message      string             `json:"message"`
	TotalRows    int                `json:"total_rows"`
	CreatedCount int                `json:"created_count"`
	Skipped      []ImportSkippedRow `json:"skipped"`
}

// ===== QUESTION BANK =====

type SubjectCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Code        string  `json:"code" validate:"required,subject_code"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type SubjectUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type QuestionOptionRequest struct {
	ID   *int   `json:"id"`
	Text string `json:"text"`
}

type QuestionCreateRequest struct {
	SubjectID        uint                    `json:"subject_id" validate:"required"`
	Text             string                  `json:"question_text" validate:"required,min=1,max=2000"`
	Options          []QuestionOptionRequest `json:"options" validate:"required"`
	CorrectOptionIDs []int                   `json:"correct_option_ids" validate:"required"`
	Difficulty       int                     `json:"difficulty" validate:"required,difficulty"`
	Chapter          *string                 `json:"chapter" validate:"omitempty,max=200"`
}

// QuestionUpdateRequest changes only the fields that are present
type QuestionUpdateRequest struct {
	SubjectID        *uint                   `json:"subject_id"`
	Text             *string                 `json:"question_text" validate:"omitempty,min=1,max=2000"`
	Options          []QuestionOptionRequest `json:"options"`
	CorrectOptionIDs []int                   `json:"correct_option_ids"`
	Difficulty       *int                    `json:"difficulty" validate:"omitempty,difficulty"`
	Chapter          *string                 `json:"chapter" validate:"omitempty,max=200"`
}

type QuestionBatchRequest struct {
	Questions []QuestionCreateRequest `json:"questions" validate:"required,min=1,max=200"`
}

// ===== EXAM CATALOG =====

type ExamCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	SubjectID   uint   `json:"subject_id" validate:"required"`
	QuestionIDs []uint `json:"questions" validate:"required,min=1,max=500"`
	Duration    int    `json:"duration" validate:"required,exam_duration"`
}

type ExamUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	QuestionIDs []uint  `json:"questions" validate:"omitempty,min=1,max=500"`
	Duration    *int    `json:"duration" validate:"omitempty,exam_duration"`
}

type ExamPaper struct {
	Exam      *Exam       `json:"exam"`
	Questions []*Question `json:"questions"`
}

// ===== ATTEMPTS =====

type SaveProgressRequest struct {
	AttemptID uint        `json:"attempt_id" validate:"required"`
	Answers   AnswerSheet `json:"answers"`
}

type SubmitAttemptRequest struct {
	AttemptID uint        `json:"attempt_id" validate:"required"`
	Answers   AnswerSheet `json:"answers"`
}

type StartAttemptResponse struct {
	Message   string    `json:"message"`
	AttemptID uint      `json:"attemptId"`
	ExamID    uint      `json:"exam_id"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
	Duration  int       `json:"duration"`
}

type SubmitAttemptResponse struct {
	Message            string `json:"message"`
	AttemptID          uint   `json:"attemptId"`
	Score              int    `json:"score"`
	TimeTakenMs        int64  `json:"timeTaken"`
	LateSubmission     bool   `json:"late_submission"`
	ScoredQuestions    int    `json:"scored_questions"`
	MissingQuestionIDs []uint `json:"missing_question_ids"`
}

// ===== PAGINATION =====

type ListParams struct {
	Page    int    `json:"page" validate:"min=1"`
	Size    int    `json:"size" validate:"min=1,max=100"`
	SortBy  string `json:"sort_by"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

type PaginatedResponse struct {
	Content       interface{} `json:"content"`
	TotalElements int64       `json:"total_elements"`
	TotalPages    int         `json:"total_pages"`
	Size          int         `json:"size"`
	Page          int         `json:"page"`
	First         bool        `json:"first"`
	Last          bool        `json:"last"`
	Empty         bool        `json:"empty"`
}

func NewPaginatedResponse(content interface{}, total int64, params ListParams, count int) PaginatedResponse {
	pages := 0
	if params.Size > 0 {
		pages = int((total + int64(params.Size) - 1) / int64(params.Size))
	}
	return PaginatedResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Size:          params.Size,
		Page:          params.Page,
		First:         params.Page <= 1,
		Last:          params.Page >= pages,
		Empty:         count == 0,
	}
}
