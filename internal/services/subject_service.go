package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type subjectService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSubjectService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) SubjectService {
	return &subjectService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *subjectService) Create(ctx context.Context, caller auth.Identity, req *models.SubjectCreateRequest) (*models.Subject, error) {
	if err := requireStaff(caller, 0, "subject", "create"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		TenantID:    caller.TenantID,
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		CreatedBy:   caller.UserID,
	}
	if err := s.repo.Subject().Create(ctx, subject); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrSubjectCodeTaken
		}
		return nil, storeError("failed to create subject", err)
	}

	s.logger.Info("Subject created", "subject_id", subject.ID, "tenant_id", caller.TenantID)
	return subject, nil
}

func (s *subjectService) Get(ctx context.Context, caller auth.Identity, id uint) (*models.Subject, error) {
	subject, err := s.repo.Subject().GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err, ErrSubjectNotFound, "failed to get subject")
	}
	return subject, nil
}

func (s *subjectService) List(ctx context.Context, caller auth.Identity, params models.ListParams) ([]*models.Subject, int64, error) {
	subjects, total, err := s.repo.Subject().List(ctx, caller.TenantID, params)
	if err != nil {
		return nil, 0, storeError("failed to list subjects", err)
	}
	return subjects, total, nil
}

func (s *subjectService) Update(ctx context.Context, caller auth.Identity, id uint, req *models.SubjectUpdateRequest) (*models.Subject, error) {
	if err := requireStaff(caller, id, "subject", "update"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	subject, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !canModify(caller, subject.CreatedBy) {
		return nil, NewPermissionError(caller.UserID, id, "subject", "update", "not owner or insufficient permissions")
	}

	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		subject.Description = req.Description
	}

	if err := s.repo.Subject().Update(ctx, subject); err != nil {
		return nil, notFoundOr(err, ErrSubjectNotFound, "failed to update subject")
	}
	return subject, nil
}

func (s *subjectService) Delete(ctx context.Context, caller auth.Identity, id uint) error {
	if caller.Role != models.RoleHOD && caller.Role != models.RoleAdmin {
		subject, err := s.Get(ctx, caller, id)
		if err != nil {
			return err
		}
		if !canModify(caller, subject.CreatedBy) {
			return NewPermissionError(caller.UserID, id, "subject", "delete", "not owner or insufficient permissions")
		}
	}

	if err := s.repo.Subject().Delete(ctx, caller.TenantID, id); err != nil {
		return notFoundOr(err, ErrSubjectNotFound, "failed to delete subject")
	}
	s.logger.Info("Subject deleted", "subject_id", id, "tenant_id", caller.TenantID)
	return nil
}
