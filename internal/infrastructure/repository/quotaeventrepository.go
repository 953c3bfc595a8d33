package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/replygate/replygate/internal/domain/quota"
	"github.com/replygate/replygate/internal/infrastructure/persistence/models"
)

type QuotaEventRepositoryImpl struct {
	db *gorm.DB
}

func NewQuotaEventRepository(db *gorm.DB) quota.Repository {
	return &QuotaEventRepositoryImpl{db: db}
}

func (r *QuotaEventRepositoryImpl) Append(ctx context.Context, event *quota.Event) error {
	model := &models.QuotaEventModel{
		EventID:     event.ID,
		TenantID:    event.TenantID,
		Sender:      event.Sender,
		HourBucket:  event.HourBucket,
		DayBucket:   event.DayBucket,
		MonthBucket: event.MonthBucket,
		Category:    event.Category,
		Allowed:     event.Allowed,
		CreatedAt:   event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append quota event: %w", err)
	}
	return nil
}

func (r *QuotaEventRepositoryImpl) CountHour(ctx context.Context, tenantID uint, bucket string) (int64, error) {
	return r.count(ctx, tenantID, "hour_bucket", bucket)
}

func (r *QuotaEventRepositoryImpl) CountDay(ctx context.Context, tenantID uint, bucket string) (int64, error) {
	return r.count(ctx, tenantID, "day_bucket", bucket)
}

func (r *QuotaEventRepositoryImpl) CountMonth(ctx context.Context, tenantID uint, bucket string) (int64, error) {
	return r.count(ctx, tenantID, "month_bucket", bucket)
}

func (r *QuotaEventRepositoryImpl) count(ctx context.Context, tenantID uint, column, bucket string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.QuotaEventModel{}).
		Where("tenant_id = ? AND "+column+" = ? AND allowed = ?", tenantID, bucket, true).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count quota events by %s: %w", column, err)
	}
	return total, nil
}
