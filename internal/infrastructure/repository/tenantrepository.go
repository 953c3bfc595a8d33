package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/persistence/mappers"
	"github.com/replygate/replygate/internal/infrastructure/persistence/models"
)

type TenantRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.TenantMapper
}

func NewTenantRepository(db *gorm.DB) tenant.Repository {
	return &TenantRepositoryImpl{
		db:     db,
		mapper: mappers.NewTenantMapper(),
	}
}

func (r *TenantRepositoryImpl) Create(ctx context.Context, t *tenant.Tenant) error {
	model, identities, err := r.mapper.ToModel(t)
	if err != nil {
		return fmt.Errorf("failed to map tenant entity to model: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		for _, identity := range identities {
			identity.TenantID = model.ID
			if err := tx.Create(identity).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return tenant.ErrIdentityTaken
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if err := t.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set tenant ID: %w", err)
	}

	return nil
}

func (r *TenantRepositoryImpl) GetByID(ctx context.Context, id uint) (*tenant.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by ID: %w", err)
	}
	return r.hydrate(ctx, &model)
}

func (r *TenantRepositoryImpl) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by SID: %w", err)
	}
	return r.hydrate(ctx, &model)
}

func (r *TenantRepositoryImpl) GetByIdentity(ctx context.Context, identity string) (*tenant.Tenant, error) {
	var row models.TenantIdentityModel
	if err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	return r.GetByID(ctx, row.TenantID)
}

func (r *TenantRepositoryImpl) Update(ctx context.Context, t *tenant.Tenant) error {
	model, identities, err := r.mapper.ToModel(t)
	if err != nil {
		return fmt.Errorf("failed to map tenant entity to model: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TenantModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]interface{}{
				"name":             model.Name,
				"tier":             model.Tier,
				"subscription":     model.Subscription,
				"trial_ends_at":    model.TrialEndsAt,
				"period_ends_at":   model.PeriodEndsAt,
				"start_hour":       model.StartHour,
				"end_hour":         model.EndHour,
				"timezone":         model.Timezone,
				"closed_days":      model.ClosedDays,
				"fallback_message": model.FallbackMessage,
				"entries":          model.Entries,
				"operators":        model.Operators,
				"updated_at":       model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return tenant.ErrTenantNotFound
		}

		// Identities are replaced wholesale; the set is tiny and the
		// unique index still guards against cross-tenant collisions.
		if err := tx.Where("tenant_id = ?", model.ID).Delete(&models.TenantIdentityModel{}).Error; err != nil {
			return err
		}
		for _, identity := range identities {
			identity.ID = 0
			if err := tx.Create(identity).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return tenant.ErrIdentityTaken
		}
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return err
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

func (r *TenantRepositoryImpl) ListOperable(ctx context.Context) ([]*tenant.Tenant, error) {
	var modelList []*models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("subscription IN ?", []string{
			string(tenant.SubscriptionTrial),
			string(tenant.SubscriptionActive),
		}).
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list operable tenants: %w", err)
	}

	tenants := make([]*tenant.Tenant, 0, len(modelList))
	for _, model := range modelList {
		entity, err := r.hydrate(ctx, model)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, entity)
	}
	return tenants, nil
}

func (r *TenantRepositoryImpl) hydrate(ctx context.Context, model *models.TenantModel) (*tenant.Tenant, error) {
	var identities []*models.TenantIdentityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", model.ID).
		Order("position ASC").
		Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to load tenant identities: %w", err)
	}

	entity, err := r.mapper.ToDomain(model, identities)
	if err != nil {
		return nil, fmt.Errorf("failed to map tenant model to entity: %w", err)
	}
	return entity, nil
}
