package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/shared/logger"
)

func cachedTenant(t *testing.T, id uint) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.ReconstructTenant(
		id, "tn_cache_test", "Cache Shop",
		[]string{"+2348000000001"},
		tenant.TierStarter, tenant.SubscriptionActive,
		nil, nil,
		tenant.DefaultOperatingHours("UTC"),
		"", nil, nil,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	return tn
}

func TestTenantCache_PutGet(t *testing.T) {
	c := NewTenantCache(time.Minute, 10, time.Minute, logger.NewLogger())

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Put(cachedTenant(t, 1))
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint(1), got.ID())
}

func TestTenantCache_TTLExpiry(t *testing.T) {
	c := NewTenantCache(time.Minute, 10, time.Minute, logger.NewLogger())
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put(cachedTenant(t, 1))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get(1)
	assert.False(t, ok, "entries past TTL must never be trusted")
}

func TestTenantCache_InvalidateForcesRefetch(t *testing.T) {
	c := NewTenantCache(time.Minute, 10, time.Minute, logger.NewLogger())

	c.Put(cachedTenant(t, 1))
	c.Invalidate(1)

	_, ok := c.Get(1)
	assert.False(t, ok, "read after invalidate must miss")
}

func TestTenantCache_CapacityEvictsOldest(t *testing.T) {
	c := NewTenantCache(time.Hour, 3, time.Minute, logger.NewLogger())
	base := time.Now()

	for i := uint(1); i <= 3; i++ {
		i := i
		c.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		c.Put(cachedTenant(t, i))
	}

	// Insert a fourth entry: tenant 1 (oldest) is evicted, the rest stay.
	c.now = func() time.Time { return base.Add(10 * time.Second) }
	c.Put(cachedTenant(t, 4))

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
	for i := uint(2); i <= 4; i++ {
		_, ok := c.Get(i)
		assert.True(t, ok, "tenant %d should survive eviction", i)
	}
}

func TestTenantCache_PutExistingDoesNotEvict(t *testing.T) {
	c := NewTenantCache(time.Hour, 2, time.Minute, logger.NewLogger())

	c.Put(cachedTenant(t, 1))
	c.Put(cachedTenant(t, 2))
	// Overwriting an existing key at capacity is not an insert.
	c.Put(cachedTenant(t, 2))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(1)
	assert.True(t, ok)
}

func TestTenantCache_Sweep(t *testing.T) {
	c := NewTenantCache(time.Minute, 10, time.Minute, logger.NewLogger())
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put(cachedTenant(t, 1))
	c.Put(cachedTenant(t, 2))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.sweep()

	assert.Equal(t, 0, c.Len())
}
