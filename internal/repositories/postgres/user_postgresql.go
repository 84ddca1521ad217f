package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const userBatchSize = 100

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateError(err, "failed to create user")
	}
	return nil
}

func (u *UserPostgreSQL) CreateBatch(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	if err := u.db.WithContext(ctx).CreateInBatches(users, userBatchSize).Error; err != nil {
		return translateError(err, "failed to create users")
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tenantID uint, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&user).Error; err != nil {
		return nil, translateError(err, "failed to get user")
	}
	return &user, nil
}

func (u *UserPostgreSQL) FindForLogin(ctx context.Context, username, email, phone string, tenantID *uint) ([]*models.User, error) {
	query := u.db.WithContext(ctx).Model(&models.User{})

	cond := u.db.Where("1 = 0")
	if username != "" {
		cond = cond.Or("username = ?", username)
	}
	if email != "" {
		cond = cond.Or("email = ?", email)
	}
	if phone != "" {
		cond = cond.Or("phone_number = ?", phone)
	}
	query = query.Where(cond)

	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}

	var users []*models.User
	if err := query.Order("created_at ASC").Limit(10).Find(&users).Error; err != nil {
		return nil, translateError(err, "failed to find users for login")
	}
	return users, nil
}

func (u *UserPostgreSQL) FindByContacts(ctx context.Context, tenantID uint, emails, phones []string) ([]*models.User, error) {
	if len(emails) == 0 && len(phones) == 0 {
		return nil, nil
	}

	cond := u.db.Where("1 = 0")
	if len(emails) > 0 {
		cond = cond.Or("email IN ?", emails)
	}
	if len(phones) > 0 {
		cond = cond.Or("phone_number IN ?", phones)
	}

	var users []*models.User
	if err := u.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(cond).
		Find(&users).Error; err != nil {
		return nil, translateError(err, "failed to find users by contact")
	}
	return users, nil
}

func (u *UserPostgreSQL) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, translateError(err, "failed to check username")
	}
	return count > 0, nil
}

func (u *UserPostgreSQL) List(ctx context.Context, tenantID uint, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := u.db.WithContext(ctx).Model(&models.User{}).Where("tenant_id = ?", tenantID)
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count users")
	}

	query = ApplyPaginationAndSort(query, filters.Params, userSortColumns, "created_at")
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, translateError(err, "failed to list users")
	}
	return users, total, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND tenant_id = ?", user.ID, user.TenantID).
		Updates(map[string]interface{}{
			"name":         user.Name,
			"email":        user.Email,
			"phone_number": user.PhoneNumber,
			"role":         user.Role,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to update user")
	}
	return nil
}

func (u *UserPostgreSQL) Delete(ctx context.Context, tenantID uint, id string) error {
	result := u.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.User{})
	if result.Error != nil {
		return translateError(result.Error, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to delete user")
	}
	return nil
}
