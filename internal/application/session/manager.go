// Package session orchestrates per-tenant sessions: one worker per
// tenant, connect/disconnect lifecycle, health probes, and startup
// reconnection. Tenants never share a worker, so one tenant's traffic
// cannot stall another's.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/config"
	"github.com/replygate/replygate/internal/shared/goroutine"
	"github.com/replygate/replygate/internal/shared/logger"
)

// InboundMessage is one message delivered off a tenant's session.
type InboundMessage struct {
	TenantID  uint
	TenantSID string
	Sender    string
	Text      string
	Group     bool
}

// InboundHandler consumes inbound messages. It is called synchronously
// from the owning worker's event goroutine, which preserves per-session
// ordering.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg InboundMessage)
}

// ConnectResult reports how a connect attempt concluded: either a
// pairing code the tenant must scan, or a direct open off stored
// credentials.
type ConnectResult struct {
	PairingCode string `json:"pairing_code,omitempty"`
	Connected   bool   `json:"connected"`
}

// Manager supervises all tenant workers.
type Manager struct {
	transport  session.Transport
	creds      session.CredentialStore
	statusRepo session.StatusRepository
	tenants    tenant.Repository
	cfg        *config.SessionConfig
	logger     logger.Interface

	mu      sync.RWMutex
	workers map[uint]*worker
	handler InboundHandler
}

func NewManager(
	transport session.Transport,
	creds session.CredentialStore,
	statusRepo session.StatusRepository,
	tenants tenant.Repository,
	cfg *config.SessionConfig,
) *Manager {
	return &Manager{
		transport:  transport,
		creds:      creds,
		statusRepo: statusRepo,
		tenants:    tenants,
		cfg:        cfg,
		logger:     logger.NewLogger().Named("session.manager"),
		workers:    make(map[uint]*worker),
	}
}

// SetHandler wires the inbound pipeline. Must be called before any
// session connects; registered separately to keep construction acyclic.
func (m *Manager) SetHandler(handler InboundHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Connect opens a session for the tenant. When the bridge has no stored
// credentials it answers with a pairing code the tenant must scan; with
// credentials the session opens directly. Blocks up to the pairing
// timeout.
func (m *Manager) Connect(ctx context.Context, tenantID uint) (*ConnectResult, error) {
	tn, err := m.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.workers[tenantID]; ok {
		switch existing.currentState() {
		case session.StateConnected:
			m.mu.Unlock()
			return nil, session.ErrAlreadyConnected
		case session.StateConnecting, session.StateReconnecting:
			m.mu.Unlock()
			return nil, session.ErrConnectInFlight
		default:
			// Dead worker left behind; replace it.
			existing.stop()
			delete(m.workers, tenantID)
		}
	}

	w := newWorker(
		tn.ID(), tn.SID(), tn.PrimaryIdentity(),
		m.transport, m.creds, m.statusRepo, m.cfg,
		m.logger, m.dispatch,
	)
	if err := w.begin(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.workers[tenantID] = w
	m.mu.Unlock()

	if err := w.start(); err != nil {
		m.removeWorker(tenantID, w)
		return nil, err
	}

	timeout := time.Duration(m.cfg.PairingTimeoutSeconds) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-w.pairing:
		return &ConnectResult{PairingCode: code}, nil
	case <-w.opened:
		return &ConnectResult{Connected: true}, nil
	case err := <-w.failed:
		m.removeWorker(tenantID, w)
		return nil, err
	case <-timer.C:
		w.stop()
		m.removeWorker(tenantID, w)
		return nil, session.ErrPairingTimeout
	case <-ctx.Done():
		w.stop()
		m.removeWorker(tenantID, w)
		return nil, ctx.Err()
	}
}

// Send delivers an outbound message on the tenant's connected session.
func (m *Manager) Send(ctx context.Context, tenantID uint, recipient, text string) error {
	w := m.worker(tenantID)
	if w == nil {
		return session.ErrNotConnected
	}
	return w.send(ctx, recipient, text)
}

// Disconnect tears the tenant's session down. Idempotent: disconnecting
// an absent session is a no-op.
func (m *Manager) Disconnect(ctx context.Context, tenantID uint) error {
	m.mu.Lock()
	w, ok := m.workers[tenantID]
	if ok {
		delete(m.workers, tenantID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	w.stop()
	return nil
}

// Status reports the tenant's session status, falling back to the
// persisted mirror when no worker is live.
func (m *Manager) Status(ctx context.Context, tenantID uint) (*session.Status, error) {
	if w := m.worker(tenantID); w != nil {
		status := w.currentStatus()
		return &status, nil
	}
	return m.statusRepo.Get(ctx, tenantID)
}

// Health probes the tenant's session. A connected session gets a live
// delivery probe against the tenant's own identity; a probe failure on a
// session with recent traffic reports degraded rather than unknown.
func (m *Manager) Health(ctx context.Context, tenantID uint) session.Health {
	w := m.worker(tenantID)
	if w == nil || w.currentState() != session.StateConnected {
		return session.HealthUnknown
	}

	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.HealthProbeTimeoutMs)*time.Millisecond)
	defer cancel()

	if err := w.send(probeCtx, w.primaryIdentity, "replygate health probe"); err == nil {
		return session.HealthOperational
	}

	status := w.currentStatus()
	cutoff := time.Now().UTC().Add(-5 * time.Minute)
	if (status.LastInboundAt != nil && status.LastInboundAt.After(cutoff)) ||
		(status.LastOutboundAt != nil && status.LastOutboundAt.After(cutoff)) {
		return session.HealthDegraded
	}
	return session.HealthUnknown
}

// ReconnectAll restores sessions at startup for every operable tenant
// with stored credentials. Each attempt runs on its own goroutine.
func (m *Manager) ReconnectAll(ctx context.Context) error {
	tenants, err := m.tenants.ListOperable(ctx)
	if err != nil {
		return err
	}

	for _, tn := range tenants {
		if !m.creds.Exists(tn.SID()) {
			continue
		}
		tn := tn
		goroutine.SafeGo(m.logger, "session.reconnect", func() {
			result, err := m.Connect(context.Background(), tn.ID())
			if err != nil {
				m.logger.Warnw("startup reconnect failed",
					"tenant_sid", tn.SID(), "error", err)
				return
			}
			if !result.Connected {
				// Credentials were stale and the bridge wants a fresh
				// pairing; nobody is watching, so stand down.
				m.logger.Warnw("startup reconnect needs re-pairing, disconnecting",
					"tenant_sid", tn.SID())
				_ = m.Disconnect(context.Background(), tn.ID())
			}
		})
	}
	return nil
}

// Shutdown stops every worker.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	workers := make([]*worker, 0, len(m.workers))
	for id, w := range m.workers {
		workers = append(workers, w)
		delete(m.workers, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		w := w
		go func() {
			defer wg.Done()
			w.stop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warnw("shutdown timed out waiting for workers")
	}
}

func (m *Manager) worker(tenantID uint) *worker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workers[tenantID]
}

func (m *Manager) removeWorker(tenantID uint, w *worker) {
	m.mu.Lock()
	if m.workers[tenantID] == w {
		delete(m.workers, tenantID)
	}
	m.mu.Unlock()
}

// dispatch hands an inbound message to the registered handler.
func (m *Manager) dispatch(ctx context.Context, msg InboundMessage) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler == nil {
		m.logger.Warnw("inbound message with no handler registered",
			"tenant_sid", msg.TenantSID)
		return
	}
	handler.HandleInbound(ctx, msg)
}
