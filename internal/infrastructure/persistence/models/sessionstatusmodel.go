package models

import (
	"time"

	"github.com/replygate/replygate/internal/shared/constants"
)

// SessionStatusModel mirrors the in-memory session state so dashboards
// survive process restarts. One row per tenant, upserted on transition.
type SessionStatusModel struct {
	ID                 uint   `gorm:"primarykey"`
	TenantID           uint   `gorm:"uniqueIndex;not null"`
	TenantSID          string `gorm:"column:tenant_sid;not null;size:32"`
	State              string `gorm:"not null;size:20"`
	LastConnectedAt    *time.Time
	LastDisconnectedAt *time.Time
	DisconnectReason   string `gorm:"size:200"`
	LastOutboundAt     *time.Time
	LastInboundAt      *time.Time
	UpdatedAt          time.Time
}

func (SessionStatusModel) TableName() string {
	return constants.TableSessionStatuses
}
