package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// attemptRecord is the stored form of models.Attempt. The tagged state is
// flattened into status, ended_at, score and late_submission.
type attemptRecord struct {
	ID             uint                                  `gorm:"primaryKey"`
	TenantID       uint                                  `gorm:"not null;index"`
	ExamID         uint                                  `gorm:"not null;index"`
	StudentID      string                                `gorm:"not null;size:36;index"`
	Answers        datatypes.JSONType[models.AnswerSheet] `gorm:"type:jsonb;not null"`
	Status         models.AttemptStatus                  `gorm:"not null;size:20;index"`
	StartedAt      time.Time                             `gorm:"not null"`
	EndedAt        *time.Time
	Score          int  `gorm:"not null;default:0"`
	LateSubmission bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (attemptRecord) TableName() string {
	return "exam_attempts"
}

func newAttemptRecord(attempt *models.Attempt) (*attemptRecord, error) {
	answers := attempt.Answers
	if answers == nil {
		answers = models.AnswerSheet{}
	}
	rec := &attemptRecord{
		ID:        attempt.ID,
		TenantID:  attempt.TenantID,
		ExamID:    attempt.ExamID,
		StudentID: attempt.StudentID,
		Answers:   datatypes.NewJSONType(answers),
	}

	switch state := attempt.State.(type) {
	case models.InProgress:
		rec.Status = models.AttemptInProgress
		rec.StartedAt = state.Started
	case models.Submitted:
		ended := state.Ended
		rec.Status = models.AttemptSubmitted
		rec.StartedAt = state.Started
		rec.EndedAt = &ended
		rec.Score = state.Score
		rec.LateSubmission = state.Late
	default:
		return nil, fmt.Errorf("attempt without state: %w", repositories.ErrCorruptRecord)
	}
	return rec, nil
}

// toModel rebuilds the tagged state and refuses rows that break its invariants
func (r *attemptRecord) toModel() (*models.Attempt, error) {
	attempt := &models.Attempt{
		ID:        r.ID,
		TenantID:  r.TenantID,
		ExamID:    r.ExamID,
		StudentID: r.StudentID,
		Answers:   r.Answers.Data(),
	}
	if attempt.Answers == nil {
		attempt.Answers = models.AnswerSheet{}
	}

	switch r.Status {
	case models.AttemptInProgress:
		if r.EndedAt != nil {
			return nil, fmt.Errorf("attempt %d in progress with end time: %w", r.ID, repositories.ErrCorruptRecord)
		}
		attempt.State = models.InProgress{Started: r.StartedAt}
	case models.AttemptSubmitted:
		if r.EndedAt == nil {
			return nil, fmt.Errorf("attempt %d submitted without end time: %w", r.ID, repositories.ErrCorruptRecord)
		}
		attempt.State = models.Submitted{
			Started: r.StartedAt,
			Ended:   *r.EndedAt,
			Score:   r.Score,
			Late:    r.LateSubmission,
		}
	default:
		return nil, fmt.Errorf("attempt %d has status %q: %w", r.ID, r.Status, repositories.ErrCorruptRecord)
	}
	return attempt, nil
}

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	rec, err := newAttemptRecord(attempt)
	if err != nil {
		return err
	}
	if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translateError(err, "failed to create attempt")
	}
	attempt.ID = rec.ID
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var rec attemptRecord
	if err := a.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, translateError(err, "failed to get attempt")
	}
	return rec.toModel()
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	var rec attemptRecord
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, models.AttemptInProgress).
		First(&rec).Error; err != nil {
		return nil, translateError(err, "failed to get active attempt")
	}
	return rec.toModel()
}

// SaveAnswers only touches rows still in progress, so a concurrent submit wins.
func (a *AttemptPostgreSQL) SaveAnswers(ctx context.Context, id uint, answers models.AnswerSheet) error {
	result := a.db.WithContext(ctx).
		Model(&attemptRecord{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Update("answers", datatypes.NewJSONType(answers))
	if result.Error != nil {
		return translateError(result.Error, "failed to save answers")
	}
	if result.RowsAffected == 0 {
		return a.missOrStale(ctx, id)
	}
	return nil
}

// Submit is a compare-and-set on status. Exactly one of two racing submits
// affects the row; the other gets ErrStaleState.
func (a *AttemptPostgreSQL) Submit(ctx context.Context, id uint, answers models.AnswerSheet, state models.Submitted) error {
	result := a.db.WithContext(ctx).
		Model(&attemptRecord{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"answers":         datatypes.NewJSONType(answers),
			"status":          models.AttemptSubmitted,
			"ended_at":        state.Ended,
			"score":           state.Score,
			"late_submission": state.Late,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to submit attempt")
	}
	if result.RowsAffected == 0 {
		return a.missOrStale(ctx, id)
	}
	return nil
}

// missOrStale tells a missing row apart from one that already left in_progress
func (a *AttemptPostgreSQL) missOrStale(ctx context.Context, id uint) error {
	var count int64
	if err := a.db.WithContext(ctx).Model(&attemptRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err, "failed to check attempt")
	}
	if count == 0 {
		return fmt.Errorf("attempt %d: %w", id, repositories.ErrNotFound)
	}
	return fmt.Errorf("attempt %d: %w", id, repositories.ErrStaleState)
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tenantID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var records []attemptRecord
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&attemptRecord{}).Where("tenant_id = ?", tenantID)
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count attempts")
	}

	// then apply pagination and sorting
	query = ApplyPaginationAndSort(query, filters.Params, attemptSortColumns, "started_at")
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, translateError(err, "failed to list attempts")
	}

	attempts := make([]*models.Attempt, 0, len(records))
	for i := range records {
		attempt, err := records[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}
