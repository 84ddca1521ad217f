package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, caller auth.Identity, req *models.QuestionCreateRequest) (*models.Question, error) {
	s.logger.Info("Creating question", "creator_id", caller.UserID, "subject_id", req.SubjectID)

	if err := requireStaff(caller, 0, "question", "create"); err != nil {
		return nil, err
	}

	// Validate request with business rules
	if errs := s.validator.ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if err := s.checkSubjects(ctx, caller, []uint{req.SubjectID}, func(int) string { return "subject_id" }); err != nil {
		return nil, err
	}

	question := buildQuestion(caller, req)
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, storeError("failed to create question", err)
	}

	s.logger.Info("Question created successfully", "question_id", question.ID)
	return question, nil
}

// CreateBatch stores all questions or none
func (s *questionService) CreateBatch(ctx context.Context, caller auth.Identity, req *models.QuestionBatchRequest) ([]*models.Question, error) {
	s.logger.Info("Creating question batch", "creator_id", caller.UserID, "count", len(req.Questions))

	if err := requireStaff(caller, 0, "question", "create"); err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateQuestionBatch(req); len(errs) > 0 {
		return nil, errs
	}

	subjectIDs := make([]uint, len(req.Questions))
	for i := range req.Questions {
		subjectIDs[i] = req.Questions[i].SubjectID
	}
	if err := s.checkSubjects(ctx, caller, subjectIDs, func(i int) string {
		return fmt.Sprintf("questions[%d].subject_id", i)
	}); err != nil {
		return nil, err
	}

	questions := make([]*models.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = buildQuestion(caller, &req.Questions[i])
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Question().CreateBatch(ctx, questions)
	})
	if err != nil {
		return nil, storeError("failed to create questions", err)
	}

	s.logger.Info("Question batch created", "count", len(questions))
	return questions, nil
}

func (s *questionService) Get(ctx context.Context, caller auth.Identity, id uint) (*models.Question, error) {
	if err := requireStaff(caller, id, "question", "read"); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err, ErrQuestionNotFound, "failed to get question")
	}
	return question, nil
}

func (s *questionService) List(ctx context.Context, caller auth.Identity, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	if err := requireStaff(caller, 0, "question", "list"); err != nil {
		return nil, 0, err
	}

	questions, total, err := s.repo.Question().List(ctx, caller.TenantID, filters)
	if err != nil {
		return nil, 0, storeError("failed to list questions", err)
	}
	return questions, total, nil
}

// Update edits a question in place. Attempts submitted afterwards are scored against the new state.
func (s *questionService) Update(ctx context.Context, caller auth.Identity, id uint, req *models.QuestionUpdateRequest) (*models.Question, error) {
	question, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canModify(caller, question.CreatedBy) {
		return nil, NewPermissionError(caller.UserID, id, "question", "update", "not owner or insufficient permissions")
	}

	if errs := s.validator.ValidateQuestionUpdate(req, question); len(errs) > 0 {
		return nil, errs
	}

	if req.SubjectID != nil && *req.SubjectID != question.SubjectID {
		if err := s.checkSubjects(ctx, caller, []uint{*req.SubjectID}, func(int) string { return "subject_id" }); err != nil {
			return nil, err
		}
		question.SubjectID = *req.SubjectID
	}
	if req.Text != nil {
		question.Text = strings.TrimSpace(*req.Text)
	}
	if req.Options != nil {
		question.Options = buildOptions(req.Options)
	}
	if req.CorrectOptionIDs != nil {
		question.CorrectOptionIDs = datatypes.JSONSlice[int](append([]int(nil), req.CorrectOptionIDs...))
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Chapter != nil {
		question.Chapter = req.Chapter
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, notFoundOr(err, ErrQuestionNotFound, "failed to update question")
	}

	s.logger.Info("Question updated", "question_id", id, "updated_by", caller.UserID)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, caller auth.Identity, id uint) error {
	question, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if !canModify(caller, question.CreatedBy) {
		return NewPermissionError(caller.UserID, id, "question", "delete", "not owner or insufficient permissions")
	}

	if err := s.repo.Question().Delete(ctx, caller.TenantID, id); err != nil {
		return notFoundOr(err, ErrQuestionNotFound, "failed to delete question")
	}

	s.logger.Info("Question deleted", "question_id", id)
	return nil
}

// ===== HELPERS =====

// checkSubjects verifies every referenced subject belongs to the caller's tenant
func (s *questionService) checkSubjects(ctx context.Context, caller auth.Identity, subjectIDs []uint, field func(int) string) error {
	known := make(map[uint]bool)
	var errs ValidationErrors

	for i, id := range subjectIDs {
		exists, checked := known[id]
		if !checked {
			_, err := s.repo.Subject().GetByID(ctx, caller.TenantID, id)
			switch {
			case err == nil:
				exists = true
			case repositories.IsNotFoundError(err):
				exists = false
			default:
				return storeError("failed to get subject", err)
			}
			known[id] = exists
		}
		if !exists {
			errs = append(errs, *NewValidationError(field(i), "subject not found", id))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func buildOptions(in []models.QuestionOptionRequest) datatypes.JSONSlice[models.QuestionOption] {
	options := make(datatypes.JSONSlice[models.QuestionOption], len(in))
	for i, opt := range in {
		options[i] = models.QuestionOption{ID: i, Text: strings.TrimSpace(opt.Text)}
	}
	return options
}

func buildQuestion(caller auth.Identity, req *models.QuestionCreateRequest) *models.Question {
	return &models.Question{
		TenantID:         caller.TenantID,
		SubjectID:        req.SubjectID,
		CreatedBy:        caller.UserID,
		Text:             strings.TrimSpace(req.Text),
		Options:          buildOptions(req.Options),
		CorrectOptionIDs: datatypes.JSONSlice[int](append([]int(nil), req.CorrectOptionIDs...)),
		Difficulty:       req.Difficulty,
		Chapter:          req.Chapter,
	}
}
