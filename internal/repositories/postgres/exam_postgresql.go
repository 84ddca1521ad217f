package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Create(exam).Error; err != nil {
		return translateError(err, "failed to create exam")
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, func() (interface{}, error) {
		return e.GetByIDUncached(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDUncached(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, translateError(err, "failed to get exam")
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, tenantID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Exam{}).Where("tenant_id = ?", tenantID)
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count exams")
	}

	query = ApplyPaginationAndSort(query, filters.Params, examSortColumns, "created_at")
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, translateError(err, "failed to list exams")
	}
	return exams, total, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	result := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND tenant_id = ?", exam.ID, exam.TenantID).
		Updates(map[string]interface{}{
			"title":        exam.Title,
			"description":  exam.Description,
			"question_ids": exam.QuestionIDs,
			"duration":     exam.Duration,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to update exam")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to update exam")
	}

	cache.InvalidateExam(ctx, e.cacheManager, exam.ID)
	return nil
}

func (e *ExamPostgreSQL) Delete(ctx context.Context, tenantID, id uint) error {
	result := e.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Exam{})
	if result.Error != nil {
		return translateError(result.Error, "failed to delete exam")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to delete exam")
	}

	cache.InvalidateExam(ctx, e.cacheManager, id)
	return nil
}
