package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const questionBatchSize = 100

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return translateError(err, "failed to create question")
	}
	return nil
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).CreateInBatches(questions, questionBatchSize).Error; err != nil {
		return translateError(err, "failed to create questions")
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tenantID, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&question).Error; err != nil {
		return nil, translateError(err, "failed to get question")
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tenantID uint, ids []uint) (map[uint]*models.Question, error) {
	result := make(map[uint]*models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&questions).Error; err != nil {
		return nil, translateError(err, "failed to get questions")
	}

	for _, question := range questions {
		result[question.ID] = question
	}
	return result, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, tenantID uint, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Question{}).Where("tenant_id = ?", tenantID)
	query = q.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count questions")
	}

	query = ApplyPaginationAndSort(query, filters.Params, questionSortColumns, "created_at")
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, translateError(err, "failed to list questions")
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuestionFilters) *gorm.DB {
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Chapter != nil {
		query = query.Where("chapter = ?", *filters.Chapter)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	result := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ? AND tenant_id = ?", question.ID, question.TenantID).
		Updates(map[string]interface{}{
			"subject_id":         question.SubjectID,
			"text":               question.Text,
			"options":            question.Options,
			"correct_option_ids": question.CorrectOptionIDs,
			"difficulty":         question.Difficulty,
			"chapter":            question.Chapter,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to update question")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to update question")
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tenantID, id uint) error {
	result := q.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Question{})
	if result.Error != nil {
		return translateError(result.Error, "failed to delete question")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to delete question")
	}
	return nil
}
