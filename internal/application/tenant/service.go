// Package tenant exposes tenant account operations: provisioning,
// responder and hours configuration, subscription changes, and the
// cached read path the message pipeline resolves tenants through.
package tenant

import (
	"context"
	"time"

	"github.com/replygate/replygate/internal/domain/responder"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/cache"
	"github.com/replygate/replygate/internal/shared/biztime"
	"github.com/replygate/replygate/internal/shared/logger"
)

const trialDays = 14

// Service coordinates tenant writes with the read cache. Every store
// write invalidates the cached entry so the pipeline never routes on a
// stale subscription or responder list.
type Service struct {
	repo   tenant.Repository
	cache  *cache.TenantCache
	logger logger.Interface
}

func NewService(repo tenant.Repository, tenantCache *cache.TenantCache) *Service {
	return &Service{
		repo:   repo,
		cache:  tenantCache,
		logger: logger.NewLogger().Named("tenant.service"),
	}
}

// CreateTenantRequest carries the fields needed to provision a tenant.
type CreateTenantRequest struct {
	Name     string
	Identity string
	Timezone string
}

// Create provisions a trial tenant.
func (s *Service) Create(ctx context.Context, req CreateTenantRequest) (*tenant.Tenant, error) {
	timezone := req.Timezone
	if timezone == "" {
		timezone = biztime.DefaultTimezone
	}

	trialEndsAt := time.Now().UTC().AddDate(0, 0, trialDays)
	tn, err := tenant.NewTenant(req.Name, req.Identity, timezone, trialEndsAt)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tn); err != nil {
		return nil, err
	}

	s.logger.Infow("tenant created",
		"tenant_sid", tn.SID(), "identity", tn.PrimaryIdentity())
	return tn, nil
}

// GetBySID loads a tenant by its public identifier.
func (s *Service) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	return s.repo.GetBySID(ctx, sid)
}

// GetByIdentity loads the tenant owning a network identity.
func (s *Service) GetByIdentity(ctx context.Context, identity string) (*tenant.Tenant, error) {
	return s.repo.GetByIdentity(ctx, identity)
}

// Resolve is the hot read path the pipeline uses per inbound message:
// cache first, store on miss, then populate.
func (s *Service) Resolve(ctx context.Context, tenantID uint) (*tenant.Tenant, error) {
	if tn, ok := s.cache.Get(tenantID); ok {
		return tn, nil
	}

	tn, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.cache.Put(tn)
	return tn, nil
}

// UpdateResponderEntries replaces the tenant's ordered responder list.
func (s *Service) UpdateResponderEntries(ctx context.Context, sid string, entries []responder.Entry) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		return tn.UpdateResponderEntries(entries)
	})
}

// UpdateHours replaces the tenant's operating-hours window.
func (s *Service) UpdateHours(ctx context.Context, sid string, hours tenant.OperatingHours) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		return tn.UpdateHours(hours)
	})
}

// UpdateFallbackMessage sets the text used outside hours and on no match.
func (s *Service) UpdateFallbackMessage(ctx context.Context, sid, message string) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		tn.UpdateFallbackMessage(message)
		return nil
	})
}

// SetOperators replaces the privileged operator identity set.
func (s *Service) SetOperators(ctx context.Context, sid string, operators []string) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		return tn.SetOperators(operators)
	})
}

// AddIdentity registers another network identity on the tenant.
func (s *Service) AddIdentity(ctx context.Context, sid, identity string) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		return tn.AddIdentity(identity)
	})
}

// ActivateSubscription moves the tenant to active on the given tier.
func (s *Service) ActivateSubscription(ctx context.Context, sid string, tier tenant.Tier, periodEndsAt time.Time) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		return tn.ActivateSubscription(tier, periodEndsAt)
	})
}

// CancelSubscription soft-disables the tenant.
func (s *Service) CancelSubscription(ctx context.Context, sid string) (*tenant.Tenant, error) {
	return s.mutate(ctx, sid, func(tn *tenant.Tenant) error {
		tn.CancelSubscription()
		return nil
	})
}

// ExpireTrialIfDue writes through a lapsed trial discovered on the read
// path. Returns true when the tenant was expired by this call.
func (s *Service) ExpireTrialIfDue(ctx context.Context, tn *tenant.Tenant, now time.Time) (bool, error) {
	if !tn.TrialExpired(now) {
		return false, nil
	}

	tn.ExpireSubscription()
	if err := s.repo.Update(ctx, tn); err != nil {
		// The aggregate may be the cached entry and is already mutated;
		// drop it so the next resolve re-reads the store.
		s.cache.Invalidate(tn.ID())
		return false, err
	}
	s.cache.Invalidate(tn.ID())

	s.logger.Infow("trial expired", "tenant_sid", tn.SID())
	return true, nil
}

// Invalidate drops the tenant's cached entry.
func (s *Service) Invalidate(tenantID uint) {
	s.cache.Invalidate(tenantID)
}

func (s *Service) mutate(ctx context.Context, sid string, apply func(tn *tenant.Tenant) error) (*tenant.Tenant, error) {
	tn, err := s.repo.GetBySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := apply(tn); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tn); err != nil {
		return nil, err
	}
	s.cache.Invalidate(tn.ID())
	return tn, nil
}
