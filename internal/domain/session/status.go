package session

import (
	"context"
	"time"
)

// Health is the tri-state probe outcome. Degraded means the probe failed
// but recent real traffic exists, which avoids false "down" alarms for
// sessions that are merely idle.
type Health string

const (
	HealthOperational Health = "operational"
	HealthDegraded    Health = "degraded"
	HealthUnknown     Health = "unknown"
)

// Status is the externally visible mirror of one tenant's session. It is
// persisted on every transition so dashboards survive process restarts.
type Status struct {
	TenantID           uint
	TenantSID          string
	State              State
	LastConnectedAt    *time.Time
	LastDisconnectedAt *time.Time
	DisconnectReason   string
	LastOutboundAt     *time.Time
	LastInboundAt      *time.Time
	UpdatedAt          time.Time
}

// StatusRepository is the durable mirror of session status rows.
type StatusRepository interface {
	Save(ctx context.Context, status *Status) error
	Get(ctx context.Context, tenantID uint) (*Status, error)
}
