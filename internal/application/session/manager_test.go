package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replygate/replygate/internal/domain/session"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/config"
)

type sentMessage struct {
	recipient string
	text      string
}

type fakeConn struct {
	mu      sync.Mutex
	events  chan session.Event
	sent    []sentMessage
	sendErr error
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan session.Event, 16)}
}

func (c *fakeConn) Events() <-chan session.Event { return c.events }

func (c *fakeConn) Send(ctx context.Context, recipient, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMessage{recipient: recipient, text: text})
	return nil
}

func (c *fakeConn) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *fakeConn) emit(ev session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.events <- ev
	}
}

type fakeTransport struct {
	mu     sync.Mutex
	script func(conn *fakeConn)
	conns  []*fakeConn
}

func (t *fakeTransport) Open(ctx context.Context, tenantSID string) (session.Conn, error) {
	conn := newFakeConn()
	t.mu.Lock()
	t.conns = append(t.conns, conn)
	script := t.script
	t.mu.Unlock()
	if script != nil {
		go script(conn)
	}
	return conn, nil
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

type fakeCredStore struct {
	mu    sync.Mutex
	marks map[string]bool
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{marks: make(map[string]bool)}
}

func (s *fakeCredStore) Exists(tenantSID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks[tenantSID]
}

func (s *fakeCredStore) Clear(tenantSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, tenantSID)
	return nil
}

func (s *fakeCredStore) put(tenantSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[tenantSID] = true
}

type memStatusRepo struct {
	mu   sync.Mutex
	rows map[uint]session.Status
}

func newMemStatusRepo() *memStatusRepo {
	return &memStatusRepo{rows: make(map[uint]session.Status)}
}

func (r *memStatusRepo) Save(ctx context.Context, status *session.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[status.TenantID] = *status
	return nil
}

func (r *memStatusRepo) Get(ctx context.Context, tenantID uint) (*session.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.rows[tenantID]
	if !ok {
		return nil, session.ErrSessionUnknown
	}
	return &status, nil
}

type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[uint]*tenant.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[uint]*tenant.Tenant)}
}

func (r *memTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID()] = t
	return nil
}

func (r *memTenantRepo) GetByID(ctx context.Context, id uint) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (r *memTenantRepo) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.SID() == sid {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *memTenantRepo) GetByIdentity(ctx context.Context, identity string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		for _, have := range t.Identities() {
			if have == identity {
				return t, nil
			}
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *memTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	return r.Create(ctx, t)
}

func (r *memTenantRepo) ListOperable(ctx context.Context) ([]*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenant.Tenant
	for _, t := range r.tenants {
		if t.Subscription().CanOperate() {
			out = append(out, t)
		}
	}
	return out, nil
}

func testSessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		PairingTimeoutSeconds:   5,
		ReconnectDelaySeconds:   0,
		SyncFailureDelaySeconds: 0,
		HealthProbeTimeoutMs:    500,
	}
}

func seedTenant(t *testing.T, repo *memTenantRepo, id uint, identity string) *tenant.Tenant {
	tn, err := tenant.NewTenant("Test Shop", identity, "Africa/Lagos", time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, tn.SetID(id))
	require.NoError(t, repo.Create(context.Background(), tn))
	return tn
}

func newTestManager(t *testing.T, transport *fakeTransport) (*Manager, *memTenantRepo, *fakeCredStore, *memStatusRepo) {
	tenants := newMemTenantRepo()
	creds := newFakeCredStore()
	statusRepo := newMemStatusRepo()
	mgr := NewManager(transport, creds, statusRepo, tenants, testSessionConfig())
	return mgr, tenants, creds, statusRepo
}

func waitForState(t *testing.T, mgr *Manager, tenantID uint, want session.State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		status, err := mgr.Status(context.Background(), tenantID)
		if err == nil && status.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	status, _ := mgr.Status(context.Background(), tenantID)
	t.Fatalf("tenant %d never reached state %s, last %+v", tenantID, want, status)
}

func TestManager_Connect_ReturnsPairingCode(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventPairing, PairingCode: "WXYZ-9876"})
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	result, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "WXYZ-9876", result.PairingCode)
	assert.False(t, result.Connected)
}

func TestManager_Connect_DirectOpenWithStoredCredentials(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, statusRepo := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	result, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Connected)

	waitForState(t, mgr, 1, session.StateConnected)

	persisted, err := statusRepo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateConnected, persisted.State)
	assert.NotNil(t, persisted.LastConnectedAt)
}

func TestManager_Connect_AlreadyConnected(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	waitForState(t, mgr, 1, session.StateConnected)

	_, err = mgr.Connect(context.Background(), 1)
	assert.ErrorIs(t, err, session.ErrAlreadyConnected)
}

// gatedTransport holds Open until released, keeping a connect attempt
// in flight for as long as the test needs.
type gatedTransport struct {
	fakeTransport
	release chan struct{}
}

func (t *gatedTransport) Open(ctx context.Context, tenantSID string) (session.Conn, error) {
	select {
	case <-t.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return t.fakeTransport.Open(ctx, tenantSID)
}

func TestManager_Connect_RejectsConcurrentAttempt(t *testing.T) {
	transport := &gatedTransport{release: make(chan struct{})}
	transport.script = func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}
	tenants := newMemTenantRepo()
	mgr := NewManager(transport, newFakeCredStore(), newMemStatusRepo(), tenants, testSessionConfig())
	seedTenant(t, tenants, 1, "+2348011111111")

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Connect(context.Background(), 1)
		done <- err
	}()

	deadline := time.Now().Add(3 * time.Second)
	for mgr.worker(1) == nil {
		if !time.Now().Before(deadline) {
			t.Fatal("worker never registered")
		}
		time.Sleep(time.Millisecond)
	}

	// The attempt is visible as in flight from the moment it is
	// registered, so a second connect cannot tear it down.
	assert.Equal(t, session.StateConnecting, mgr.worker(1).currentState())
	_, err := mgr.Connect(context.Background(), 1)
	assert.ErrorIs(t, err, session.ErrConnectInFlight)

	close(transport.release)
	require.NoError(t, <-done)
	waitForState(t, mgr, 1, session.StateConnected)
}

func TestManager_Connect_UnknownTenant(t *testing.T) {
	mgr, _, _, _ := newTestManager(t, &fakeTransport{})

	_, err := mgr.Connect(context.Background(), 42)
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestManager_SendRequiresConnection(t *testing.T) {
	mgr, tenants, _, _ := newTestManager(t, &fakeTransport{})
	seedTenant(t, tenants, 1, "+2348011111111")

	err := mgr.Send(context.Background(), 1, "+2348099999999", "hi")
	assert.ErrorIs(t, err, session.ErrNotConnected)
}

func TestManager_SendOnConnectedSession(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	waitForState(t, mgr, 1, session.StateConnected)

	require.NoError(t, mgr.Send(context.Background(), 1, "+2348099999999", "hello"))

	conn := transport.conns[0]
	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.sent, 1)
	assert.Equal(t, "+2348099999999", conn.sent[0].recipient)
	assert.Equal(t, "hello", conn.sent[0].text)
}

func TestManager_SendFailureCarriesClassifiedMessage(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	waitForState(t, mgr, 1, session.StateConnected)

	transport.conns[0].failSends(session.NewTransportError(session.CodeRateLimited, "429 from far end"))

	err = mgr.Send(context.Background(), 1, "+2348099999999", "hello")
	require.Error(t, err)

	var deliveryErr *session.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, session.CategoryRateLimited, deliveryErr.Classification.Category)
	assert.Contains(t, err.Error(), "Wait a few minutes and retry")

	var te *session.TransportError
	require.ErrorAs(t, err, &te, "the transport cause stays in the chain")
	assert.Equal(t, session.CodeRateLimited, te.Code)
}

func TestManager_DisconnectIsIdempotent(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, statusRepo := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	waitForState(t, mgr, 1, session.StateConnected)

	require.NoError(t, mgr.Disconnect(context.Background(), 1))
	require.NoError(t, mgr.Disconnect(context.Background(), 1))

	persisted, err := statusRepo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateDisconnected, persisted.State)

	err = mgr.Send(context.Background(), 1, "+2348099999999", "hi")
	assert.ErrorIs(t, err, session.ErrNotConnected)
}

func TestManager_TerminalClosureClearsCredentials(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
		time.Sleep(50 * time.Millisecond)
		conn.emit(session.Event{
			Type:        session.EventClosed,
			CloseCode:   session.CodeRevoked,
			CloseReason: "logged out from phone",
		})
		conn.Close()
	}}
	mgr, tenants, creds, statusRepo := newTestManager(t, transport)
	tn := seedTenant(t, tenants, 1, "+2348011111111")
	creds.put(tn.SID())

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)

	waitForState(t, mgr, 1, session.StateTerminal)
	assert.False(t, creds.Exists(tn.SID()))

	persisted, err := statusRepo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateTerminal, persisted.State)
	assert.NotEmpty(t, persisted.DisconnectReason)
}

func TestManager_RetryableClosureReconnects(t *testing.T) {
	var opens int
	var mu sync.Mutex
	transport := &fakeTransport{}
	transport.script = func(conn *fakeConn) {
		mu.Lock()
		opens++
		first := opens == 1
		mu.Unlock()

		conn.emit(session.Event{Type: session.EventOpened})
		if first {
			time.Sleep(50 * time.Millisecond)
			conn.emit(session.Event{
				Type:        session.EventClosed,
				CloseCode:   session.CodeNetwork,
				CloseReason: "socket reset",
			})
			conn.Close()
		}
	}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)

	waitForState(t, mgr, 1, session.StateConnected)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if transport.openCount() >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.GreaterOrEqual(t, transport.openCount(), 2, "expected a reconnect attempt")

	waitForState(t, mgr, 1, session.StateConnected)
}

func TestManager_InboundMessagesKeepOrder(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
		for _, text := range []string{"one", "two", "three"} {
			conn.emit(session.Event{
				Type:   session.EventMessage,
				Sender: "+2348022222222",
				Text:   text,
			})
		}
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	mgr.SetHandler(inboundFunc(func(ctx context.Context, msg InboundMessage) {
		mu.Lock()
		got = append(got, msg.Text)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	}))

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("inbound messages not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

type inboundFunc func(ctx context.Context, msg InboundMessage)

func (f inboundFunc) HandleInbound(ctx context.Context, msg InboundMessage) { f(ctx, msg) }

func TestManager_ReconnectAllSkipsTenantsWithoutCredentials(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, creds, _ := newTestManager(t, transport)
	withCreds := seedTenant(t, tenants, 1, "+2348011111111")
	seedTenant(t, tenants, 2, "+2348022222222")
	creds.put(withCreds.SID())

	require.NoError(t, mgr.ReconnectAll(context.Background()))

	waitForState(t, mgr, 1, session.StateConnected)
	assert.Equal(t, 1, transport.openCount())
}

func TestManager_HealthProbe(t *testing.T) {
	transport := &fakeTransport{script: func(conn *fakeConn) {
		conn.emit(session.Event{Type: session.EventOpened})
	}}
	mgr, tenants, _, _ := newTestManager(t, transport)
	seedTenant(t, tenants, 1, "+2348011111111")

	assert.Equal(t, session.HealthUnknown, mgr.Health(context.Background(), 1))

	_, err := mgr.Connect(context.Background(), 1)
	require.NoError(t, err)
	waitForState(t, mgr, 1, session.StateConnected)

	assert.Equal(t, session.HealthOperational, mgr.Health(context.Background(), 1))
}
