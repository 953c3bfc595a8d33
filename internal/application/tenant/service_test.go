package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replygate/replygate/internal/domain/responder"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/cache"
	"github.com/replygate/replygate/internal/shared/logger"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    uint
	tenants   map[uint]*tenant.Tenant
	getByID   int
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, tenants: make(map[uint]*tenant.Tenant)}
}

func (r *memRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := t.SetID(r.nextID); err != nil {
		return err
	}
	r.nextID++
	r.tenants[t.ID()] = t
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uint) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getByID++
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (r *memRepo) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.SID() == sid {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *memRepo) GetByIdentity(ctx context.Context, identity string) (*tenant.Tenant, error) {
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

func (r *memRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tenants[t.ID()]; !ok {
		return tenant.ErrTenantNotFound
	}
	r.tenants[t.ID()] = t
	return nil
}

func (r *memRepo) failUpdates(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

func (r *memRepo) ListOperable(ctx context.Context) ([]*tenant.Tenant, error) {
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

func (r *memRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByID
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	repo := newMemRepo()
	tenantCache := cache.NewTenantCache(time.Minute, 100, time.Minute, logger.NewLogger())
	t.Cleanup(tenantCache.Stop)
	return NewService(repo, tenantCache), repo
}

func TestService_CreateDefaultsTimezone(t *testing.T) {
	svc, _ := newTestService(t)

	tn, err := svc.Create(context.Background(), CreateTenantRequest{
		Name:     "Ada Stores",
		Identity: "0801 234 5678",
	})
	require.NoError(t, err)
	assert.Equal(t, "Africa/Lagos", tn.Hours().Timezone)
	assert.Equal(t, "+2348012345678", tn.PrimaryIdentity())
	assert.Equal(t, tenant.SubscriptionTrial, tn.Subscription())
	require.NotNil(t, tn.TrialEndsAt())
}

func TestService_ResolveUsesCache(t *testing.T) {
	svc, repo := newTestService(t)

	tn, err := svc.Create(context.Background(), CreateTenantRequest{
		Name: "Ada Stores", Identity: "+2348012345678",
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := svc.Resolve(context.Background(), tn.ID())
		require.NoError(t, err)
		assert.Equal(t, tn.SID(), got.SID())
	}
	assert.Equal(t, 1, repo.loadCount(), "only the first resolve should hit the store")
}

func TestService_MutationInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tn, err := svc.Create(ctx, CreateTenantRequest{
		Name: "Ada Stores", Identity: "+2348012345678",
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, tn.ID())
	require.NoError(t, err)

	_, err = svc.UpdateResponderEntries(ctx, tn.SID(), []responder.Entry{
		{Keywords: []string{"price"}, Reply: "N5,000 per month", Category: "pricing"},
	})
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, tn.ID())
	require.NoError(t, err)
	require.Len(t, got.Entries(), 1)
	assert.Equal(t, "pricing", got.Entries()[0].Category)
}

func TestService_ExpireTrialIfDue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tn, err := svc.Create(ctx, CreateTenantRequest{
		Name: "Ada Stores", Identity: "+2348012345678",
	})
	require.NoError(t, err)

	expired, err := svc.ExpireTrialIfDue(ctx, tn, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, expired, "trial still running")

	future := time.Now().UTC().AddDate(0, 0, trialDays+1)
	expired, err = svc.ExpireTrialIfDue(ctx, tn, future)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, tenant.SubscriptionExpired, tn.Subscription())

	// Idempotent once expired.
	expired, err = svc.ExpireTrialIfDue(ctx, tn, future)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestService_ExpireTrialWriteFailureDropsCachedEntry(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	tn, err := svc.Create(ctx, CreateTenantRequest{
		Name: "Ada Stores", Identity: "+2348012345678",
	})
	require.NoError(t, err)

	cached, err := svc.Resolve(ctx, tn.ID())
	require.NoError(t, err)

	repo.failUpdates(errors.New("store down"))
	future := time.Now().UTC().AddDate(0, 0, trialDays+1)
	expired, err := svc.ExpireTrialIfDue(ctx, cached, future)
	require.Error(t, err)
	assert.False(t, expired)

	// The cached aggregate was mutated before the write failed, so it
	// must not survive in the cache: the next resolve hits the store.
	repo.failUpdates(nil)
	before := repo.loadCount()
	_, err = svc.Resolve(ctx, tn.ID())
	require.NoError(t, err)
	assert.Equal(t, before+1, repo.loadCount())
}

func TestService_ActivateAndCancelSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tn, err := svc.Create(ctx, CreateTenantRequest{
		Name: "Ada Stores", Identity: "+2348012345678",
	})
	require.NoError(t, err)

	periodEnd := time.Now().UTC().AddDate(0, 1, 0)
	got, err := svc.ActivateSubscription(ctx, tn.SID(), tenant.TierProfessional, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, tenant.TierProfessional, got.Tier())
	assert.Equal(t, tenant.SubscriptionActive, got.Subscription())

	got, err = svc.CancelSubscription(ctx, tn.SID())
	require.NoError(t, err)
	assert.Equal(t, tenant.SubscriptionCancelled, got.Subscription())
	assert.False(t, got.Subscription().CanOperate())
}
