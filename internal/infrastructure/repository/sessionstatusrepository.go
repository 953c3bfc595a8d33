package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/infrastructure/persistence/models"
)

type SessionStatusRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionStatusRepository(db *gorm.DB) session.StatusRepository {
	return &SessionStatusRepositoryImpl{db: db}
}

func (r *SessionStatusRepositoryImpl) Save(ctx context.Context, status *session.Status) error {
	model := &models.SessionStatusModel{
		TenantID:           status.TenantID,
		TenantSID:          status.TenantSID,
		State:              string(status.State),
		LastConnectedAt:    status.LastConnectedAt,
		LastDisconnectedAt: status.LastDisconnectedAt,
		DisconnectReason:   status.DisconnectReason,
		LastOutboundAt:     status.LastOutboundAt,
		LastInboundAt:      status.LastInboundAt,
		UpdatedAt:          status.UpdatedAt,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tenant_sid", "state",
				"last_connected_at", "last_disconnected_at", "disconnect_reason",
				"last_outbound_at", "last_inbound_at", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save session status: %w", err)
	}
	return nil
}

func (r *SessionStatusRepositoryImpl) Get(ctx context.Context, tenantID uint) (*session.Status, error) {
	var model models.SessionStatusModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrSessionUnknown
		}
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}

	return &session.Status{
		TenantID:           model.TenantID,
		TenantSID:          model.TenantSID,
		State:              session.State(model.State),
		LastConnectedAt:    model.LastConnectedAt,
		LastDisconnectedAt: model.LastDisconnectedAt,
		DisconnectReason:   model.DisconnectReason,
		LastOutboundAt:     model.LastOutboundAt,
		LastInboundAt:      model.LastInboundAt,
		UpdatedAt:          model.UpdatedAt,
	}, nil
}
