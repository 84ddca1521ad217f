package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type TenantPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTenantPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TenantRepository {
	return &TenantPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (t *TenantPostgreSQL) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := t.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return translateError(err, "failed to create tenant")
	}
	return nil
}

func (t *TenantPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := t.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, translateError(err, "failed to get tenant")
	}
	return &tenant, nil
}

// GetByName is on the request path of externally issued tokens, so it reads through the cache
func (t *TenantPostgreSQL) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := t.cacheManager.Tenant.CacheOrExecute(ctx, cache.TenantNameKey(name), &tenant, func() (interface{}, error) {
		var dbTenant models.Tenant
		if err := t.db.WithContext(ctx).Where("name = ?", name).First(&dbTenant).Error; err != nil {
			return nil, translateError(err, "failed to get tenant by name")
		}
		return &dbTenant, nil
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (t *TenantPostgreSQL) SetOwner(ctx context.Context, tenantID uint, ownerID string) error {
	result := t.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Update("owner_id", ownerID)
	if result.Error != nil {
		return translateError(result.Error, "failed to set tenant owner")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "failed to set tenant owner")
	}
	cache.InvalidateTenant(ctx, t.cacheManager)
	return nil
}

func (t *TenantPostgreSQL) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, translateError(err, "failed to check tenant name")
	}
	return count > 0, nil
}
