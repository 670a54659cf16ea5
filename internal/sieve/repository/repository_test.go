package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/pkg/db"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	gdb, err := db.OpenTestSQLite(&domain.Config{}, &domain.Invoice{})
	if err != nil {
		t.Fatalf("OpenTestSQLite: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake.NewNode: %v", err)
	}

	return New(gdb, node)
}

func TestGetThresholdFallsBackToDefaultWhenMissing(t *testing.T) {
	r := newTestRepository(t)

	got, err := r.GetThreshold(context.Background(), "tenant-1", "t_hold", 90)
	if err != nil {
		t.Fatalf("GetThreshold: %v", err)
	}
	if got != 90 {
		t.Fatalf("expected default 90, got %v", got)
	}
}

func TestGetThresholdReadsBareNumberAndWrappedValue(t *testing.T) {
	r := newTestRepository(t)

	if err := r.db.Create(&domain.Config{
		TenantID: "tenant-1", Scope: "global", Key: "t_hold",
		Value: datatypes.JSON(`85`),
	}).Error; err != nil {
		t.Fatalf("seed bare: %v", err)
	}
	if err := r.db.Create(&domain.Config{
		TenantID: "tenant-1", Scope: "global", Key: "t_review",
		Value: datatypes.JSON(`{"value": 60}`),
	}).Error; err != nil {
		t.Fatalf("seed wrapped: %v", err)
	}

	got, err := r.GetThreshold(context.Background(), "tenant-1", "t_hold", 0)
	if err != nil {
		t.Fatalf("GetThreshold(t_hold): %v", err)
	}
	if got != 85 {
		t.Fatalf("expected 85, got %v", got)
	}

	got, err = r.GetThreshold(context.Background(), "tenant-1", "t_review", 0)
	if err != nil {
		t.Fatalf("GetThreshold(t_review): %v", err)
	}
	if got != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestGetThresholdCachesAcrossCalls(t *testing.T) {
	r := newTestRepository(t)

	if err := r.db.Create(&domain.Config{
		TenantID: "tenant-1", Scope: "global", Key: "t_hold",
		Value: datatypes.JSON(`85`),
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := r.GetThreshold(context.Background(), "tenant-1", "t_hold", 0); err != nil {
		t.Fatalf("first GetThreshold: %v", err)
	}

	if err := r.db.Exec(
		`DELETE FROM configs WHERE tenant_id = ? AND key = ?`, "tenant-1", "t_hold",
	).Error; err != nil {
		t.Fatalf("delete seed row: %v", err)
	}

	got, err := r.GetThreshold(context.Background(), "tenant-1", "t_hold", 0)
	if err != nil {
		t.Fatalf("second GetThreshold: %v", err)
	}
	if got != 85 {
		t.Fatalf("expected cached 85 after underlying row deleted, got %v", got)
	}
}

func TestGetInvoiceMapsRecordNotFound(t *testing.T) {
	r := newTestRepository(t)

	if _, err := r.GetInvoice(context.Background(), "tenant-1", "missing"); err != domain.ErrInvoiceNotFound {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
