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

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *examService) Create(ctx context.Context, caller auth.Identity, req *models.ExamCreateRequest) (*models.Exam, error) {
	s.logger.Info("Creating exam", "creator_id", caller.UserID, "subject_id", req.SubjectID)

	if err := requireStaff(caller, 0, "exam", "create"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Subject().GetByID(ctx, caller.TenantID, req.SubjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ValidationErrors{*NewValidationError("subject_id", "subject not found", req.SubjectID)}
		}
		return nil, storeError("failed to get subject", err)
	}
	if err := s.checkQuestions(ctx, caller, req.QuestionIDs); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		TenantID:    caller.TenantID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		SubjectID:   req.SubjectID,
		CreatedBy:   caller.UserID,
		QuestionIDs: datatypes.JSONSlice[uint](append([]uint(nil), req.QuestionIDs...)),
		Duration:    req.Duration,
	}
	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, storeError("failed to create exam", err)
	}

	s.logger.Info("Exam created successfully", "exam_id", exam.ID)
	return exam, nil
}

func (s *examService) Get(ctx context.Context, caller auth.Identity, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrExamNotFound, "failed to get exam")
	}
	if exam.TenantID != caller.TenantID {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, caller auth.Identity, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	exams, total, err := s.repo.Exam().List(ctx, caller.TenantID, filters)
	if err != nil {
		return nil, 0, storeError("failed to list exams", err)
	}
	return exams, total, nil
}

func (s *examService) Update(ctx context.Context, caller auth.Identity, id uint, req *models.ExamUpdateRequest) (*models.Exam, error) {
	s.logger.Info("Updating exam", "exam_id", id, "user_id", caller.UserID)

	if err := requireStaff(caller, id, "exam", "update"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getForWrite(ctx, caller, id, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		exam.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.QuestionIDs != nil {
		if err := s.checkQuestions(ctx, caller, req.QuestionIDs); err != nil {
			return nil, err
		}
		exam.QuestionIDs = datatypes.JSONSlice[uint](append([]uint(nil), req.QuestionIDs...))
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, notFoundOr(err, ErrExamNotFound, "failed to update exam")
	}

	s.logger.Info("Exam updated successfully", "exam_id", id)
	return exam, nil
}

func (s *examService) Delete(ctx context.Context, caller auth.Identity, id uint) error {
	if err := requireStaff(caller, id, "exam", "delete"); err != nil {
		return err
	}
	if _, err := s.getForWrite(ctx, caller, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Exam().Delete(ctx, caller.TenantID, id); err != nil {
		return notFoundOr(err, ErrExamNotFound, "failed to delete exam")
	}

	s.logger.Info("Exam deleted", "exam_id", id)
	return nil
}

func (s *examService) GetPaper(ctx context.Context, caller auth.Identity, id uint) (*models.ExamPaper, error) {
	exam, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	byID, err := s.repo.Question().GetByIDs(ctx, caller.TenantID, exam.QuestionIDs)
	if err != nil {
		return nil, storeError("failed to load exam questions", err)
	}

	questions := make([]*models.Question, 0, len(exam.QuestionIDs))
	for _, questionID := range exam.QuestionIDs {
		question, ok := byID[questionID]
		if !ok {
			// deleted after the exam was assembled
			continue
		}
		if !caller.Role.IsStaff() {
			question = question.ForStudent()
		}
		questions = append(questions, question)
	}

	return &models.ExamPaper{Exam: exam, Questions: questions}, nil
}

// ===== HELPERS =====

// getForWrite reads the exam from the database and checks the caller may change it
func (s *examService) getForWrite(ctx context.Context, caller auth.Identity, id uint, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDUncached(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrExamNotFound, "failed to get exam")
	}
	if exam.TenantID != caller.TenantID {
		return nil, ErrExamNotFound
	}
	if !canModify(caller, exam.CreatedBy) {
		return nil, NewPermissionError(caller.UserID, id, "exam", action, "not owner or insufficient permissions")
	}
	return exam, nil
}

// checkQuestions verifies every question id exists in the caller's tenant
func (s *examService) checkQuestions(ctx context.Context, caller auth.Identity, ids []uint) error {
	found, err := s.repo.Question().GetByIDs(ctx, caller.TenantID, ids)
	if err != nil {
		return storeError("failed to get questions", err)
	}

	var errs ValidationErrors
	for i, id := range ids {
		if _, ok := found[id]; !ok {
			errs = append(errs, *NewValidationError(fmt.Sprintf("questions[%d]", i), "question not found", id))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
