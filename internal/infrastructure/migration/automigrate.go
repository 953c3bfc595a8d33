package migration

import (
	"github.com/replygate/replygate/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.TenantModel{},
		&models.TenantIdentityModel{},
		&models.QuotaEventModel{},
		&models.SessionStatusModel{},
	}
}
