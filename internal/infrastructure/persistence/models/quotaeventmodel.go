package models

import (
	"time"

	"github.com/replygate/replygate/internal/shared/constants"
)

// QuotaEventModel is one appended message-attempt row. Rows are insert
// only; window counts are aggregated over the bucket columns.
type QuotaEventModel struct {
	ID          uint   `gorm:"primarykey"`
	EventID     string `gorm:"uniqueIndex;not null;size:32"`
	TenantID    uint   `gorm:"not null;index:idx_qe_tenant_hour;index:idx_qe_tenant_day;index:idx_qe_tenant_month"`
	Sender      string `gorm:"not null;size:32"`
	HourBucket  string `gorm:"not null;size:10;index:idx_qe_tenant_hour"`
	DayBucket   string `gorm:"not null;size:8;index:idx_qe_tenant_day"`
	MonthBucket string `gorm:"not null;size:6;index:idx_qe_tenant_month"`
	Category    string `gorm:"size:50"`
	Allowed     bool   `gorm:"not null"`
	CreatedAt   time.Time
}

func (QuotaEventModel) TableName() string {
	return constants.TableQuotaEvents
}
