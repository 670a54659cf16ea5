package baseline

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/sieve/internal/clock"
	"github.com/smallbiznis/sieve/internal/sieve/repository"
)

type fakeStore struct {
	tenants  []string
	totals   map[string][]repository.VendorTotalStats
	upserted map[string][]repository.VendorTotalStats
}

func (f *fakeStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	return f.tenants, nil
}

func (f *fakeStore) AggregateVendorTotals(ctx context.Context, tenantID string) ([]repository.VendorTotalStats, error) {
	return f.totals[tenantID], nil
}

func (f *fakeStore) UpsertVendorBaseline(ctx context.Context, tenantID string, stats repository.VendorTotalStats) error {
	if f.upserted == nil {
		f.upserted = make(map[string][]repository.VendorTotalStats)
	}
	f.upserted[tenantID] = append(f.upserted[tenantID], stats)
	return nil
}

type fakeLocker struct {
	locked   map[string]bool
	denyNext bool
}

func (f *fakeLocker) TryLockBaselineRecompute(ctx context.Context, tenantID, vendorID string) (string, bool, error) {
	if f.denyNext {
		return "", false, nil
	}
	if f.locked == nil {
		f.locked = make(map[string]bool)
	}
	key := tenantID + ":" + vendorID
	f.locked[key] = true
	return "tok", true, nil
}

func (f *fakeLocker) ReleaseBaselineRecompute(ctx context.Context, tenantID, vendorID, token string) error {
	delete(f.locked, tenantID+":"+vendorID)
	return nil
}

func TestRunOnceRecomputesEveryTenant(t *testing.T) {
	store := &fakeStore{
		tenants: []string{"t1", "t2"},
		totals: map[string][]repository.VendorTotalStats{
			"t1": {{VendorID: "v1", MeanTotal: 100, StdTotal: 10, SampleCount: 5}},
			"t2": {{VendorID: "v2", MeanTotal: 200, StdTotal: 20, SampleCount: 8}},
		},
	}
	locker := &fakeLocker{}

	job := New(store, locker, clock.NewFakeClock(time.Now()), zap.NewNop())
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.upserted["t1"]) != 1 || store.upserted["t1"][0].VendorID != "v1" {
		t.Fatalf("expected t1 baseline upserted, got %v", store.upserted["t1"])
	}
	if len(store.upserted["t2"]) != 1 || store.upserted["t2"][0].VendorID != "v2" {
		t.Fatalf("expected t2 baseline upserted, got %v", store.upserted["t2"])
	}
}

func TestRunOnceSkipsTenantWhenLockHeldElsewhere(t *testing.T) {
	store := &fakeStore{
		tenants: []string{"t1"},
		totals: map[string][]repository.VendorTotalStats{
			"t1": {{VendorID: "v1", MeanTotal: 100, StdTotal: 10, SampleCount: 5}},
		},
	}
	locker := &fakeLocker{denyNext: true}

	job := New(store, locker, clock.NewFakeClock(time.Now()), zap.NewNop())
	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.upserted["t1"]) != 0 {
		t.Fatalf("expected no upsert when lock unavailable, got %v", store.upserted["t1"])
	}
}
