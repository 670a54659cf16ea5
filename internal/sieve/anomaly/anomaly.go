// Package anomaly scores an invoice against its vendor's historical amount
// distribution and remit-account history.
package anomaly

import (
	"context"
	"math"
	"time"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

// Baseline is the offline-maintained per-vendor amount distribution.
type Baseline struct {
	MeanTotal   float64
	StdTotal    float64
	SampleCount int64
}

// RemitAccount is the first/last-seen window for a (vendor, remit hash).
type RemitAccount struct {
	FirstSeen time.Time
	LastSeen  time.Time
}

// Store is the read-side port the anomaly scorer needs. The repository
// package implements it against Postgres/MySQL/SQLite via gorm.
type Store interface {
	CountVendorInvoices(ctx context.Context, tenantID, vendorID, excludeInvoiceID string) (int64, error)
	GetVendorBaseline(ctx context.Context, tenantID, vendorID string) (*Baseline, error)
	GetRemitAccount(ctx context.Context, tenantID, vendorID, remitHash string) (*RemitAccount, error)
}

// Input is the subset of an invoice header the scorer needs.
type Input struct {
	TenantID         string
	VendorID         string
	InvoiceID        string
	Total            float64
	RemitAccountHash *string
	// VendorHistCount, when non-nil, skips the store lookup (the
	// orchestrator may already have this count on hand).
	VendorHistCount *int64
}

// bankChangeWindow is the window after which a remit account row is no
// longer considered "just observed": a literal last_seen-first_seen<=60s
// heuristic; see DESIGN.md for the documented false-positive caveat (any
// upsert cluster landing inside one window, not only genuinely new
// accounts, will trip this).
const bankChangeWindow = 60 * time.Second

// Score returns the anomaly probability in [0,1] and any triggered reason
// codes (BANK_CHANGE, UNIT_PRICE_OUTLIER), following the vendor-baseline
// z-score with cold-vendor dampening.
func Score(ctx context.Context, store Store, in Input) (float64, []string, error) {
	var reasons []string

	histCount := int64(-1)
	if in.VendorHistCount != nil {
		histCount = *in.VendorHistCount
	} else {
		n, err := store.CountVendorInvoices(ctx, in.TenantID, in.VendorID, in.InvoiceID)
		if err != nil {
			return 0, nil, err
		}
		histCount = n
	}

	baseline, err := store.GetVendorBaseline(ctx, in.TenantID, in.VendorID)
	if err != nil {
		return 0, nil, err
	}

	bankChange := false
	if in.RemitAccountHash != nil && *in.RemitAccountHash != "" {
		remit, err := store.GetRemitAccount(ctx, in.TenantID, in.VendorID, *in.RemitAccountHash)
		if err != nil {
			return 0, nil, err
		}
		if remit == nil {
			bankChange = true
		} else {
			bankChange = remit.LastSeen.Sub(remit.FirstSeen) <= bankChangeWindow
		}
	}
	if bankChange {
		reasons = append(reasons, domain.ReasonBankChange)
	}

	z := 0.0
	if baseline != nil && baseline.StdTotal > 0 {
		z = math.Abs(in.Total-baseline.MeanTotal) / baseline.StdTotal
	} else if baseline != nil && baseline.SampleCount > 10 {
		z = math.Abs(in.Total-baseline.MeanTotal) / math.Max(math.Abs(baseline.MeanTotal), 1.0)
	}

	if z >= 2.5 {
		reasons = append(reasons, domain.ReasonUnitPriceOutlier)
	}

	prob := 0.1 + math.Min(z/5.0, 0.6)
	if bankChange {
		prob += 0.25
	}
	if histCount >= 0 && histCount < 5 {
		prob *= 0.8
	}
	if prob > 1.0 {
		prob = 1.0
	}
	if prob < 0 {
		prob = 0
	}

	return prob, reasons, nil
}
