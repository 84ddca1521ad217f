package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       Clock
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       utcNow,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, caller auth.Identity, examID uint) (*models.StartAttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"exam_id", examID,
		"student_id", caller.UserID)

	if caller.Role != models.RoleStudent {
		return nil, NewPermissionError(caller.UserID, examID, "exam", "start_attempt", "only students can take exams")
	}

	exam, err := s.getExam(ctx, caller, examID, true)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Attempt().GetActive(ctx, examID, caller.UserID); err == nil {
		return nil, ErrAttemptAlreadyActive
	} else if !repositories.IsNotFoundError(err) {
		return nil, storeError("failed to check active attempt", err)
	}

	attempt := models.NewAttempt(caller.TenantID, examID, caller.UserID, s.now())
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		// the partial unique index catches a concurrent start
		if repositories.IsDuplicateError(err) {
			return nil, ErrAttemptAlreadyActive
		}
		return nil, storeError("failed to create attempt", err)
	}

	startedAt := attempt.State.StartedAt()
	deadline := Deadline(exam, startedAt)

	s.logger.Info("Exam attempt started",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"student_id", caller.UserID)

	if err := s.publisher.PublishAttemptStarted(ctx, events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		ExamID:    examID,
		TenantID:  caller.TenantID,
		StudentID: caller.UserID,
		StartedAt: startedAt,
		Deadline:  deadline,
	}); err != nil {
		s.logger.Error("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
	}

	return &models.StartAttemptResponse{
		Message:   "Exam started",
		AttemptID: attempt.ID,
		ExamID:    examID,
		StartedAt: startedAt,
		Deadline:  deadline,
		Duration:  exam.Duration,
	}, nil
}

func (s *attemptService) SaveProgress(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) error {
	if answers == nil {
		answers = models.AnswerSheet{}
	}
	if errs := s.validator.ValidateAnswerSheet(answers); len(errs) > 0 {
		return errs
	}

	attempt, err := s.getOwnedAttempt(ctx, caller, examID, attemptID, "save_progress")
	if err != nil {
		return err
	}
	if attempt.IsSubmitted() {
		return ErrAttemptAlreadySubmitted
	}

	if err := s.repo.Attempt().SaveAnswers(ctx, attemptID, answers); err != nil {
		switch {
		case repositories.IsStaleStateError(err):
			return ErrAttemptAlreadySubmitted
		case repositories.IsNotFoundError(err):
			return ErrAttemptNotFound
		default:
			return storeError("failed to save answers", err)
		}
	}

	s.logger.Debug("Attempt progress saved",
		"attempt_id", attemptID,
		"answered", len(answers))
	return nil
}

func (s *attemptService) Submit(ctx context.Context, caller auth.Identity, examID, attemptID uint, answers models.AnswerSheet) (*models.SubmitAttemptResponse, error) {
	s.logger.Info("Submitting exam attempt",
		"attempt_id", attemptID,
		"exam_id", examID,
		"student_id", caller.UserID)

	if answers == nil {
		answers = models.AnswerSheet{}
	}
	if errs := s.validator.ValidateAnswerSheet(answers); len(errs) > 0 {
		return nil, errs
	}

	// The cache is never authoritative for scoring
	exam, err := s.getExam(ctx, caller, examID, false)
	if err != nil {
		return nil, err
	}

	attempt, err := s.getOwnedAttempt(ctx, caller, examID, attemptID, "submit")
	if err != nil {
		return nil, err
	}
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}

	questions, err := s.repo.Question().GetByIDs(ctx, caller.TenantID, answers.QuestionIDs())
	if err != nil {
		return nil, storeError("failed to load questions", err)
	}
	result := ScoreAnswers(exam, questions, answers)

	final, err := attempt.Finalize(s.now(), result.Score, exam.AllowedTime())
	if err != nil {
		return nil, ErrAttemptAlreadySubmitted
	}

	if err := s.repo.Attempt().Submit(ctx, attemptID, answers, final); err != nil {
		switch {
		case repositories.IsStaleStateError(err):
			return nil, ErrAttemptAlreadySubmitted
		case repositories.IsNotFoundError(err):
			return nil, ErrAttemptNotFound
		default:
			return nil, storeError("failed to submit attempt", err)
		}
	}
	attempt.Answers = answers
	attempt.State = final

	if final.Late {
		s.logger.Warn("Late submission",
			"attempt_id", attemptID,
			"time_taken", final.TimeTaken().String(),
			"allowed", exam.AllowedTime().String())
	}
	if len(result.Missing) > 0 {
		s.logger.Warn("Submission referenced unknown questions",
			"attempt_id", attemptID,
			"question_ids", result.Missing)
	}

	s.logger.Info("Exam attempt submitted",
		"attempt_id", attemptID,
		"score", final.Score,
		"late", final.Late)

	if err := s.publisher.PublishAttemptSubmitted(ctx, events.AttemptSubmittedEvent{
		AttemptID:          attemptID,
		ExamID:             examID,
		TenantID:           caller.TenantID,
		StudentID:          caller.UserID,
		Score:              final.Score,
		TimeTakenMs:        final.TimeTaken().Milliseconds(),
		LateSubmission:     final.Late,
		MissingQuestionIDs: result.Missing,
		SubmittedAt:        final.Ended,
	}); err != nil {
		s.logger.Error("Failed to publish attempt submitted event", "attempt_id", attemptID, "error", err)
	}

	return &models.SubmitAttemptResponse{
		Message:            "Exam submitted successfully",
		AttemptID:          attemptID,
		Score:              final.Score,
		TimeTakenMs:        final.TimeTaken().Milliseconds(),
		LateSubmission:     final.Late,
		ScoredQuestions:    result.Scored,
		MissingQuestionIDs: result.Missing,
	}, nil
}

// ===== READS =====

func (s *attemptService) Get(ctx context.Context, caller auth.Identity, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.getAttempt(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && attempt.StudentID != caller.UserID {
		return nil, NewPermissionError(caller.UserID, attemptID, "attempt", "read", "not owned by student")
	}
	return attempt, nil
}

func (s *attemptService) ListByExam(ctx context.Context, caller auth.Identity, examID uint, params models.ListParams) ([]*models.Attempt, int64, error) {
	if !caller.Role.IsStaff() {
		return nil, 0, NewPermissionError(caller.UserID, examID, "exam", "view_attempts", "insufficient role permissions")
	}
	if _, err := s.getExam(ctx, caller, examID, true); err != nil {
		return nil, 0, err
	}

	attempts, total, err := s.repo.Attempt().List(ctx, caller.TenantID, repositories.AttemptFilters{
		ExamID: &examID,
		Params: params,
	})
	if err != nil {
		return nil, 0, storeError("failed to list attempts", err)
	}
	return attempts, total, nil
}

func (s *attemptService) ListMine(ctx context.Context, caller auth.Identity, params models.ListParams) ([]*models.Attempt, int64, error) {
	studentID := caller.UserID
	attempts, total, err := s.repo.Attempt().List(ctx, caller.TenantID, repositories.AttemptFilters{
		StudentID: &studentID,
		Params:    params,
	})
	if err != nil {
		return nil, 0, storeError("failed to list attempts", err)
	}
	return attempts, total, nil
}

// ===== HELPERS =====

// getExam loads an exam of the caller's tenant. Other tenants' exams look missing.
func (s *attemptService) getExam(ctx context.Context, caller auth.Identity, examID uint, cached bool) (*models.Exam, error) {
	var (
		exam *models.Exam
		err  error
	)
	if cached {
		exam, err = s.repo.Exam().GetByID(ctx, examID)
	} else {
		exam, err = s.repo.Exam().GetByIDUncached(ctx, examID)
	}
	if err != nil {
		return nil, notFoundOr(err, ErrExamNotFound, "failed to get exam")
	}
	if exam.TenantID != caller.TenantID {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

func (s *attemptService) getAttempt(ctx context.Context, caller auth.Identity, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, notFoundOr(err, ErrAttemptNotFound, "failed to get attempt")
	}
	if attempt.TenantID != caller.TenantID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// getOwnedAttempt loads an attempt of examID that the caller may mutate
func (s *attemptService) getOwnedAttempt(ctx context.Context, caller auth.Identity, examID, attemptID uint, action string) (*models.Attempt, error) {
	if caller.Role != models.RoleStudent {
		return nil, NewPermissionError(caller.UserID, attemptID, "attempt", action, "only students can take exams")
	}

	attempt, err := s.getAttempt(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.ExamID != examID {
		return nil, fmt.Errorf("%w: attempt %d does not belong to exam %d", ErrAttemptNotFound, attemptID, examID)
	}
	if attempt.StudentID != caller.UserID {
		return nil, NewPermissionError(caller.UserID, attemptID, "attempt", action, "not owned by student")
	}
	return attempt, nil
}
