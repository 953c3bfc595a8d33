package cache

import (
	"context"
	"sync"
	"time"

	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/goroutine"
	"github.com/replygate/replygate/internal/shared/logger"
)

const (
	// DefaultTenantTTL bounds how stale a cached tenant may get even if
	// an invalidation is missed.
	DefaultTenantTTL = 5 * time.Minute

	// DefaultTenantCapacity bounds memory; at capacity the single oldest
	// entry is evicted rather than maintaining full LRU order.
	DefaultTenantCapacity = 1000

	defaultSweepInterval = time.Minute
)

type tenantEntry struct {
	tenant   *tenant.Tenant
	loadedAt time.Time
}

// TenantCache is a read-through, TTL-bounded, capacity-bounded cache of
// tenant snapshots keyed by tenant ID. Explicit invalidation after every
// store write is the primary consistency mechanism; TTL and the sweep
// are the backstop.
type TenantCache struct {
	mu            sync.RWMutex
	entries       map[uint]tenantEntry
	ttl           time.Duration
	capacity      int
	sweepInterval time.Duration
	stopOnce      sync.Once
	stopChan      chan struct{}
	logger        logger.Interface
	now           func() time.Time
}

func NewTenantCache(ttl time.Duration, capacity int, sweepInterval time.Duration, log logger.Interface) *TenantCache {
	if ttl <= 0 {
		ttl = DefaultTenantTTL
	}
	if capacity <= 0 {
		capacity = DefaultTenantCapacity
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &TenantCache{
		entries:       make(map[uint]tenantEntry),
		ttl:           ttl,
		capacity:      capacity,
		sweepInterval: sweepInterval,
		stopChan:      make(chan struct{}),
		logger:        log.Named("tenant_cache"),
		now:           time.Now,
	}
}

// Get returns the cached tenant if present and inside its TTL.
func (c *TenantCache) Get(tenantID uint) (*tenant.Tenant, bool) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.loadedAt) > c.ttl {
		return nil, false
	}
	return entry.tenant, true
}

// Put stores a fresh snapshot, evicting the single oldest entry when at
// capacity.
func (c *TenantCache) Put(t *tenant.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[t.ID()]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[t.ID()] = tenantEntry{tenant: t, loadedAt: c.now()}
}

// Invalidate drops the tenant's entry. Callers invoke it after every
// successful store write, before reporting success upstream, so the next
// read is forced back to the store.
func (c *TenantCache) Invalidate(tenantID uint) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *TenantCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper launches the background sweep that removes TTL-expired
// entries, bounding memory independent of invalidation correctness.
func (c *TenantCache) StartSweeper(ctx context.Context) {
	goroutine.SafeGo(c.logger, "tenant-cache-sweeper", func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	})
}

// Stop halts the background sweeper.
func (c *TenantCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *TenantCache) sweep() {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for tenantID, entry := range c.entries {
		if now.Sub(entry.loadedAt) > c.ttl {
			delete(c.entries, tenantID)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debugw("swept expired tenant entries", "removed", removed)
	}
}

func (c *TenantCache) evictOldestLocked() {
	var (
		oldestID   uint
		oldestTime time.Time
		found      bool
	)
	for tenantID, entry := range c.entries {
		if !found || entry.loadedAt.Before(oldestTime) {
			oldestID = tenantID
			oldestTime = entry.loadedAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestID)
	}
}
