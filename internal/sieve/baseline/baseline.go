// Package baseline recomputes the per-vendor amount distribution the
// anomaly scorer reads, mirroring a periodic batch job rather than an
// inline update so invoice scoring never pays for it synchronously.
package baseline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/clock"
	"github.com/smallbiznis/sieve/internal/ratelimit"
	"github.com/smallbiznis/sieve/internal/sieve/repository"
)

const allVendorsLockKey = "all"

// Store is the persistence port this job reads and writes through. The
// production implementation is *repository.Repository; tests can supply a
// fake.
type Store interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
	AggregateVendorTotals(ctx context.Context, tenantID string) ([]repository.VendorTotalStats, error)
	UpsertVendorBaseline(ctx context.Context, tenantID string, stats repository.VendorTotalStats) error
}

// Locker is the distributed mutual-exclusion port; the production
// implementation is *ratelimit.ScoreInvoiceLimiter.
type Locker interface {
	TryLockBaselineRecompute(ctx context.Context, tenantID, vendorID string) (string, bool, error)
	ReleaseBaselineRecompute(ctx context.Context, tenantID, vendorID, token string) error
}

var _ Locker = (*ratelimit.ScoreInvoiceLimiter)(nil)

// Job periodically recomputes vendor_amount_baselines from invoice
// history, serialized per tenant across replicas via a Redis lock so two
// schedulers never race the same aggregate.
type Job struct {
	store   Store
	limiter Locker
	clock   clock.Clock
	log     *zap.Logger

	interval time.Duration
}

func New(store Store, limiter Locker, clk clock.Clock, log *zap.Logger) *Job {
	return &Job{
		store:    store,
		limiter:  limiter,
		clock:    clk,
		log:      log.Named("baseline"),
		interval: time.Hour,
	}
}

// WithInterval overrides the default hourly recompute cadence.
func (j *Job) WithInterval(d time.Duration) *Job {
	if d > 0 {
		j.interval = d
	}
	return j
}

// RunForever recomputes on a fixed interval until ctx is canceled.
func (j *Job) RunForever(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if err := j.RunOnce(ctx); err != nil {
			j.log.Warn("baseline recompute failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce recomputes baselines for every tenant with invoice history.
func (j *Job) RunOnce(ctx context.Context) error {
	tenants, err := j.store.ListTenantIDs(ctx)
	if err != nil {
		return err
	}

	var jobErr error
	for _, tenantID := range tenants {
		if err := j.recomputeTenant(ctx, tenantID); err != nil {
			jobErr = errors.Join(jobErr, err)
		}
	}
	return jobErr
}

func (j *Job) recomputeTenant(ctx context.Context, tenantID string) error {
	token, acquired, err := j.limiter.TryLockBaselineRecompute(ctx, tenantID, allVendorsLockKey)
	if err != nil {
		return err
	}
	if !acquired {
		j.log.Debug("baseline recompute already running elsewhere", zap.String("tenant_id", tenantID))
		return nil
	}
	defer func() {
		if releaseErr := j.limiter.ReleaseBaselineRecompute(ctx, tenantID, allVendorsLockKey, token); releaseErr != nil {
			j.log.Warn("baseline lock release failed", zap.String("tenant_id", tenantID), zap.Error(releaseErr))
		}
	}()

	start := j.clock.Now()
	stats, err := j.store.AggregateVendorTotals(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, s := range stats {
		if err := j.store.UpsertVendorBaseline(ctx, tenantID, s); err != nil {
			return err
		}
	}

	j.log.Info("vendor baselines recomputed",
		zap.String("tenant_id", tenantID),
		zap.Int("vendor_count", len(stats)),
		zap.Duration("elapsed", j.clock.Now().Sub(start)),
	)
	return nil
}
