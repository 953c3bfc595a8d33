package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantapp "github.com/replygate/replygate/internal/application/tenant"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/cache"
	"github.com/replygate/replygate/internal/interfaces/http/handlers/testutil"
	"github.com/replygate/replygate/internal/shared/logger"
)

type fakeTenantRepo struct {
	byID      map[uint]*tenant.Tenant
	createErr error
	nextID    uint
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{byID: make(map[uint]*tenant.Tenant), nextID: 1}
}

func (r *fakeTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	if r.createErr != nil {
		return r.createErr
	}
	if err := t.SetID(r.nextID); err != nil {
		return err
	}
	r.nextID++
	r.byID[t.ID()] = t
	return nil
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id uint) (*tenant.Tenant, error) {
	if t, ok := r.byID[id]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *fakeTenantRepo) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	for _, t := range r.byID {
		if t.SID() == sid {
			return t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *fakeTenantRepo) GetByIdentity(ctx context.Context, identity string) (*tenant.Tenant, error) {
	for _, t := range r.byID {
		for _, id := range t.Identities() {
			if id == identity {
				return t, nil
			}
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *fakeTenantRepo) Update(ctx context.Context, t *tenant.Tenant) error {
	r.byID[t.ID()] = t
	return nil
}

func (r *fakeTenantRepo) ListOperable(ctx context.Context) ([]*tenant.Tenant, error) {
	out := make([]*tenant.Tenant, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out, nil
}

func newTestTenantHandler(repo tenant.Repository) *TenantHandler {
	tc := cache.NewTenantCache(time.Minute, 16, time.Minute, logger.NewLogger())
	return NewTenantHandler(tenantapp.NewService(repo, tc))
}

func seedTenant(t *testing.T, repo *fakeTenantRepo) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant("Acme Retail", "+2348012345678", "Africa/Lagos",
		time.Now().UTC().AddDate(0, 0, 14))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), tn))
	return tn
}

func TestTenantHandler_CreateTenant_Success(t *testing.T) {
	repo := newFakeTenantRepo()
	handler := newTestTenantHandler(repo)

	reqBody := CreateTenantRequest{
		Name:     "Acme Retail",
		Identity: "+2348012345678",
	}
	c, w := testutil.NewTestContext(http.MethodPost, "/api/tenants", reqBody)

	handler.CreateTenant(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)
}

func TestTenantHandler_CreateTenant_InvalidRequest(t *testing.T) {
	handler := newTestTenantHandler(newFakeTenantRepo())

	reqBody := map[string]string{"name": "No Identity"}
	c, w := testutil.NewTestContext(http.MethodPost, "/api/tenants", reqBody)

	handler.CreateTenant(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantHandler_CreateTenant_IdentityTaken(t *testing.T) {
	repo := newFakeTenantRepo()
	repo.createErr = tenant.ErrIdentityTaken
	handler := newTestTenantHandler(repo)

	reqBody := CreateTenantRequest{Name: "Dup", Identity: "+2348012345678"}
	c, w := testutil.NewTestContext(http.MethodPost, "/api/tenants", reqBody)

	handler.CreateTenant(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTenantHandler_GetTenant_Success(t *testing.T) {
	repo := newFakeTenantRepo()
	tn := seedTenant(t, repo)
	handler := newTestTenantHandler(repo)

	c, w := testutil.NewTestContext(http.MethodGet, "/api/tenants/"+tn.SID(), nil)
	testutil.SetURLParam(c, "sid", tn.SID())

	handler.GetTenant(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), tn.SID())
}

func TestTenantHandler_GetTenant_NotFound(t *testing.T) {
	handler := newTestTenantHandler(newFakeTenantRepo())

	c, w := testutil.NewTestContext(http.MethodGet, "/api/tenants/missing", nil)
	testutil.SetURLParam(c, "sid", "missing")

	handler.GetTenant(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTenantHandler_UpdateResponder_Success(t *testing.T) {
	repo := newFakeTenantRepo()
	tn := seedTenant(t, repo)
	handler := newTestTenantHandler(repo)

	reqBody := UpdateResponderRequest{
		Entries: []ResponderEntryInput{
			{Keywords: []string{"price", "pricing"}, Reply: "See our catalogue", Category: "pricing"},
		},
	}
	c, w := testutil.NewTestContext(http.MethodPut, "/api/tenants/"+tn.SID()+"/responder", reqBody)
	testutil.SetURLParam(c, "sid", tn.SID())

	handler.UpdateResponder(c)

	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := repo.GetBySID(context.Background(), tn.SID())
	require.NoError(t, err)
	require.Len(t, updated.Entries(), 1)
	assert.Equal(t, "pricing", updated.Entries()[0].Category)
}

func TestTenantHandler_ActivateSubscription_InvalidTier(t *testing.T) {
	repo := newFakeTenantRepo()
	tn := seedTenant(t, repo)
	handler := newTestTenantHandler(repo)

	reqBody := map[string]interface{}{
		"tier":           "platinum",
		"period_ends_at": time.Now().Add(30 * 24 * time.Hour),
	}
	c, w := testutil.NewTestContext(http.MethodPut, "/api/tenants/"+tn.SID()+"/subscription", reqBody)
	testutil.SetURLParam(c, "sid", tn.SID())

	handler.ActivateSubscription(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantHandler_ActivateSubscription_Success(t *testing.T) {
	repo := newFakeTenantRepo()
	tn := seedTenant(t, repo)
	handler := newTestTenantHandler(repo)

	reqBody := ActivateSubscriptionRequest{
		Tier:         "starter",
		PeriodEndsAt: time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	c, w := testutil.NewTestContext(http.MethodPut, "/api/tenants/"+tn.SID()+"/subscription", reqBody)
	testutil.SetURLParam(c, "sid", tn.SID())

	handler.ActivateSubscription(c)

	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := repo.GetBySID(context.Background(), tn.SID())
	require.NoError(t, err)
	assert.Equal(t, tenant.SubscriptionActive, updated.Subscription())
	assert.Equal(t, tenant.TierStarter, updated.Tier())
}
