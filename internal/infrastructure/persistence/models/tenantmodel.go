package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/replygate/replygate/internal/shared/constants"
)

// TenantModel is the database persistence model for tenants. This is the
// anti-corruption layer between domain and database.
type TenantModel struct {
	ID              uint   `gorm:"primarykey"`
	SID             string `gorm:"column:sid;uniqueIndex;not null;size:32"`
	Name            string `gorm:"not null;size:100"`
	Tier            string `gorm:"not null;size:20"`
	Subscription    string `gorm:"not null;size:20;index"`
	TrialEndsAt     *time.Time
	PeriodEndsAt    *time.Time
	StartHour       int    `gorm:"not null;default:0"`
	EndHour         int    `gorm:"not null;default:24"`
	Timezone        string `gorm:"not null;size:64"`
	ClosedDays      datatypes.JSON
	FallbackMessage string `gorm:"type:text"`
	Entries         datatypes.JSON
	Operators       datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (TenantModel) TableName() string {
	return constants.TableTenants
}

// TenantIdentityModel maps one network identity to its owning tenant.
// The unique index on identity is what enforces global ownership.
//
// Note: No foreign key constraints or associations.
// All relationships are managed by application business logic.
type TenantIdentityModel struct {
	ID        uint   `gorm:"primarykey"`
	TenantID  uint   `gorm:"not null;index"`
	Identity  string `gorm:"uniqueIndex;not null;size:32"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (TenantIdentityModel) TableName() string {
	return constants.TableTenantIdentities
}
