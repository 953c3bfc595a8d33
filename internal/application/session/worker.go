package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/shared/config"
	"github.com/replygate/replygate/internal/shared/goroutine"
	"github.com/replygate/replygate/internal/shared/logger"
)

// worker owns one tenant's session: the live connection, the state
// machine, and the reconnect schedule. Inbound events are consumed on a
// single goroutine so per-session ordering holds without a shared queue.
type worker struct {
	tenantID        uint
	tenantSID       string
	primaryIdentity string

	transport  session.Transport
	creds      session.CredentialStore
	statusRepo session.StatusRepository
	cfg        *config.SessionConfig
	logger     logger.Interface
	handler    func(ctx context.Context, msg InboundMessage)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      session.State
	conn       session.Conn
	status     session.Status
	retryTimer *time.Timer

	pairing chan string
	opened  chan struct{}
	failed  chan error
}

func newWorker(
	tenantID uint,
	tenantSID, primaryIdentity string,
	transport session.Transport,
	creds session.CredentialStore,
	statusRepo session.StatusRepository,
	cfg *config.SessionConfig,
	log logger.Interface,
	handler func(ctx context.Context, msg InboundMessage),
) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &worker{
		tenantID:        tenantID,
		tenantSID:       tenantSID,
		primaryIdentity: primaryIdentity,
		transport:       transport,
		creds:           creds,
		statusRepo:      statusRepo,
		cfg:             cfg,
		logger:          log.With("tenant_sid", tenantSID),
		handler:         handler,
		ctx:             ctx,
		cancel:          cancel,
		state:           session.StateIdle,
		status: session.Status{
			TenantID:  tenantID,
			TenantSID: tenantSID,
			State:     session.StateIdle,
		},
		pairing: make(chan string, 1),
		opened:  make(chan struct{}, 1),
		failed:  make(chan error, 1),
	}
}

// begin moves the worker into connecting before it becomes visible to
// other manager calls, so a concurrent connect sees an in-flight attempt
// rather than an idle worker it may tear down and replace.
func (w *worker) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := w.state.Transition(session.StateConnecting)
	if err != nil {
		return err
	}
	w.state = next
	w.status.State = next
	w.status.UpdatedAt = time.Now().UTC()
	return nil
}

// start opens the connection and begins consuming events. The worker is
// already in connecting (see begin). It returns immediately; pairing and
// opened signals arrive on the worker channels.
func (w *worker) start() error {
	w.persistStatus()

	conn, err := w.transport.Open(w.ctx, w.tenantSID)
	if err != nil {
		w.fail(err)
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	goroutine.SafeGo(w.logger, "session.worker", func() {
		w.consume(conn)
	})
	return nil
}

// consume drains one connection's events until it dies, then decides
// whether to reconnect.
func (w *worker) consume(conn session.Conn) {
	var closedEvent *session.Event

	for event := range conn.Events() {
		switch event.Type {
		case session.EventPairing:
			select {
			case w.pairing <- event.PairingCode:
			default:
			}

		case session.EventOpened:
			if err := w.transition(session.StateConnected, ""); err != nil {
				w.logger.Warnw("unexpected opened event", "error", err)
				continue
			}
			now := time.Now().UTC()
			w.mu.Lock()
			w.status.LastConnectedAt = &now
			w.status.DisconnectReason = ""
			w.mu.Unlock()
			w.persistStatus()
			select {
			case w.opened <- struct{}{}:
			default:
			}

		case session.EventMessage:
			now := time.Now().UTC()
			w.mu.Lock()
			w.status.LastInboundAt = &now
			w.mu.Unlock()
			if w.handler != nil {
				w.handler(w.ctx, InboundMessage{
					TenantID:  w.tenantID,
					TenantSID: w.tenantSID,
					Sender:    event.Sender,
					Text:      event.Text,
					Group:     event.Group,
				})
			}

		case session.EventClosed:
			e := event
			closedEvent = &e
		}
	}

	if w.ctx.Err() != nil {
		// Deliberate disconnect; the state was already advanced.
		return
	}

	if closedEvent == nil {
		// The socket dropped without a closed frame.
		w.handleClosure(session.NewTransportError(session.CodeNetwork, "connection lost"))
		return
	}
	w.handleClosure(session.NewTransportError(closedEvent.CloseCode, closedEvent.CloseReason))
}

// handleClosure classifies a dead connection and either schedules a
// reconnect or parks the session in terminal.
func (w *worker) handleClosure(cause error) {
	classification := session.Classify(cause)

	code := session.CodeUnknown
	var te *session.TransportError
	if errors.As(cause, &te) {
		code = te.Code
	}

	now := time.Now().UTC()
	w.mu.Lock()
	w.status.LastDisconnectedAt = &now
	w.status.DisconnectReason = classification.UserMessage
	w.mu.Unlock()

	if classification.Terminal {
		w.logger.Warnw("session failed terminally",
			"category", classification.Category, "cause", cause)
		if err := w.transition(session.StateTerminal, classification.UserMessage); err != nil {
			w.logger.Errorw("failed to enter terminal state", "error", err)
		}
		if err := w.creds.Clear(w.tenantSID); err != nil {
			w.logger.Errorw("failed to clear credentials", "error", err)
		}
		w.fail(cause)
		return
	}

	if !classification.Retry {
		w.logger.Warnw("session closed without retry",
			"category", classification.Category, "cause", cause)
		if err := w.transition(session.StateDisconnected, classification.UserMessage); err != nil {
			w.logger.Errorw("failed to enter disconnected state", "error", err)
		}
		w.fail(cause)
		return
	}

	if err := w.transition(session.StateReconnecting, classification.UserMessage); err != nil {
		w.logger.Errorw("failed to enter reconnecting state", "error", err)
		return
	}

	delay := time.Duration(w.cfg.ReconnectDelaySeconds) * time.Second
	if code == session.CodeSyncFailure {
		delay = time.Duration(w.cfg.SyncFailureDelaySeconds) * time.Second
	}
	w.logger.Infow("scheduling reconnect", "delay", delay, "cause", cause)

	w.mu.Lock()
	w.retryTimer = time.AfterFunc(delay, func() {
		w.reconnect()
	})
	w.mu.Unlock()
}

func (w *worker) reconnect() {
	if w.ctx.Err() != nil {
		return
	}
	if err := w.transition(session.StateConnecting, ""); err != nil {
		return
	}

	conn, err := w.transport.Open(w.ctx, w.tenantSID)
	if err != nil {
		w.handleClosure(err)
		return
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	goroutine.SafeGo(w.logger, "session.worker", func() {
		w.consume(conn)
	})
}

// stop tears the worker down for a deliberate disconnect. Idempotent.
func (w *worker) stop() {
	w.mu.Lock()
	if w.retryTimer != nil {
		w.retryTimer.Stop()
		w.retryTimer = nil
	}
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()

	w.cancel()

	switch w.currentState() {
	case session.StateConnected:
		if err := w.transition(session.StateDisconnecting, ""); err == nil {
			_ = w.transition(session.StateDisconnected, "disconnected by request")
		}
	case session.StateConnecting, session.StateReconnecting:
		_ = w.transition(session.StateDisconnected, "disconnected by request")
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			w.logger.Warnw("error closing connection", "error", err)
		}
	}
}

func (w *worker) send(ctx context.Context, recipient, text string) error {
	w.mu.Lock()
	conn := w.conn
	state := w.state
	w.mu.Unlock()

	if state != session.StateConnected || conn == nil {
		return session.ErrNotConnected
	}

	if err := conn.Send(ctx, recipient, text); err != nil {
		return &session.DeliveryError{Classification: session.Classify(err), Cause: err}
	}

	now := time.Now().UTC()
	w.mu.Lock()
	w.status.LastOutboundAt = &now
	w.mu.Unlock()
	return nil
}

func (w *worker) currentState() session.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *worker) currentStatus() session.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	status := w.status
	status.State = w.state
	return status
}

// transition advances the state machine, mirrors the status row, and
// persists it.
func (w *worker) transition(to session.State, reason string) error {
	w.mu.Lock()
	next, err := w.state.Transition(to)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = next
	w.status.State = next
	if reason != "" {
		w.status.DisconnectReason = reason
	}
	w.status.UpdatedAt = time.Now().UTC()
	w.mu.Unlock()

	w.persistStatus()
	return nil
}

func (w *worker) persistStatus() {
	status := w.currentStatus()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := w.statusRepo.Save(ctx, &status); err != nil {
		w.logger.Errorw("failed to persist session status", "error", err)
	}
}

func (w *worker) fail(err error) {
	select {
	case w.failed <- err:
	default:
	}
}
