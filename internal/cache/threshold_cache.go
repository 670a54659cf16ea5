package cache

import (
	"strings"
	"time"
)

const defaultThresholdTTL = 30 * time.Second

// ThresholdCache caches per-tenant T_hold/T_review lookups, the same
// (tenant, key) pair read on every ScoreInvoice call. A cache miss or an
// expired entry is the caller's signal to go read-through to storage.
type ThresholdCache struct {
	values Cache[string, float64]
	ttl    time.Duration
}

// NewThresholdCache returns a ready-to-use threshold cache with the default
// TTL, short enough that an operator tuning a tenant's thresholds sees the
// change within one refresh window.
func NewThresholdCache() *ThresholdCache {
	return &ThresholdCache{
		values: NewTTLCache[string, float64](),
		ttl:    defaultThresholdTTL,
	}
}

// Get returns the cached threshold for (tenantID, key), if present and
// unexpired.
func (c *ThresholdCache) Get(tenantID, key string) (float64, bool) {
	return c.values.Get(thresholdKey(tenantID, key))
}

// Set stores the threshold for (tenantID, key).
func (c *ThresholdCache) Set(tenantID, key string, value float64) {
	c.values.Set(thresholdKey(tenantID, key), value, c.ttl)
}

func thresholdKey(tenantID, key string) string {
	return strings.ToLower(strings.TrimSpace(tenantID)) + "|" + strings.ToLower(strings.TrimSpace(key))
}
