package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sieve/internal/config"
)

const (
	keyScoreInvoiceTenant = "score:invoice:tenant:%s"
	keyBaselineLock       = "baseline:recompute:lock:%s:%s"
)

// ScoreInvoiceLimiter guards POST /scoreInvoice per tenant and serializes
// the offline vendor-baseline recompute job across replicas.
type ScoreInvoiceLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate  float64
	burst int

	baselineLockTTL time.Duration
}

func NewScoreInvoiceLimiter(cfg config.Config) (*ScoreInvoiceLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ScoreInvoiceRate <= 0 || limitCfg.ScoreInvoiceBurst <= 0 {
		return nil, errors.New("score invoice rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	lockTTL := time.Duration(limitCfg.BaselineLockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = 15 * time.Minute
	}

	return &ScoreInvoiceLimiter{
		enabled:         true,
		bucket:          NewTokenBucket(client),
		locker:          NewLocker(client),
		rate:            limitCfg.ScoreInvoiceRate,
		burst:           limitCfg.ScoreInvoiceBurst,
		baselineLockTTL: lockTTL,
	}, nil
}

func (l *ScoreInvoiceLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowScoreInvoice consumes one token for tenantID, true when the request
// may proceed.
func (l *ScoreInvoiceLimiter) AllowScoreInvoice(ctx context.Context, tenantID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyScoreInvoiceTenant, strings.TrimSpace(tenantID)), l.rate, l.burst)
}

// TryLockBaselineRecompute acquires the mutual-exclusion lock for the
// vendor baseline recompute job so only one replica runs it per vendor at
// a time.
func (l *ScoreInvoiceLimiter) TryLockBaselineRecompute(ctx context.Context, tenantID, vendorID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keyBaselineLock, strings.TrimSpace(tenantID), strings.TrimSpace(vendorID))
	return l.locker.TryLock(ctx, key, l.baselineLockTTL)
}

func (l *ScoreInvoiceLimiter) ReleaseBaselineRecompute(ctx context.Context, tenantID, vendorID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keyBaselineLock, strings.TrimSpace(tenantID), strings.TrimSpace(vendorID))
	return l.locker.Release(ctx, key, token)
}
