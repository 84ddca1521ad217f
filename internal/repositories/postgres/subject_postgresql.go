package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type SubjectPostgreSQL struct {
	db *gorm.DB
}

func NewSubjectPostgreSQL(db *gorm.DB) repositories.SubjectRepository {
	return &SubjectPostgreSQL{db: db}
}

func (s *SubjectPostgreSQL) Create(ctx context.Context, subject *models.Subject) error {
	if err := s.db.WithContext(ctx).Create(subject).Error; err != nil {
		return translateError(err, "failed to create subject")
	}
	return nil
}

func (s *SubjectPostgreSQL) GetByID(ctx context.Context, tenantID, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&subject).Error; err != nil {
		return nil, translateError(err, "failed to get subject")
	}
	return &subject, nil
}

func (s *SubjectPostgreSQL) List(ctx context.Context, tenantID uint, params models.ListParams) ([]*models.Subject, int64, error) {
	var subjects []*models.Subject
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Subject{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count subjects")
	}

	query = ApplyPaginationAndSort(query, params, subjectSortColumns, "name")
	if err := query.Find(&subjects).Error; err != nil {
		return nil, 0, translateError(err, "failed to list subjects")
	}
	return subjects, total, nil
}

func (s *SubjectPostgreSQL) Update(ctx context.Context, subject *models.Subject) error {
	result := s.db.WithContext(ctx).
		Model(&models.Subject{}).
		Where("id = ? AND tenant_id = ?", subject.ID, subject.TenantID).
		Updates(map[string]interface{}{
			"name":        subject.Name,
			"description": subject.Description,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to update subject")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to update subject")
	}
	return nil
}

func (s *SubjectPostgreSQL) Delete(ctx context.Context, tenantID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Subject{})
	if result.Error != nil {
		return translateError(result.Error, "failed to delete subject")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to delete subject")
	}
	return nil
}
