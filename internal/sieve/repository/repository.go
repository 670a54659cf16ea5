// Package repository implements all persistence for the scoring pipeline:
// the single-transaction invoice write, decision/case/audit writes, the
// anomaly scorer's read port, and per-tenant config lookups.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/sieve/internal/sieve/anomaly"
	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/internal/cache"
	"github.com/smallbiznis/sieve/internal/sieve/retrieval"
	"github.com/smallbiznis/sieve/pkg/rls"
)

// Repository is the persistence port consumed by the orchestrator.
type Repository struct {
	db         *gorm.DB
	genID      *snowflake.Node
	thresholds *cache.ThresholdCache
}

func New(db *gorm.DB, genID *snowflake.Node) *Repository {
	return &Repository{db: db, genID: genID, thresholds: cache.NewThresholdCache()}
}

// PersistedInvoice is the upsert result: the normalized fields the caller
// (orchestrator) re-reads as the single source of truth.
type PersistedInvoice struct {
	InvoiceID              string
	InvoiceNumberNorm      string
	RemitBankAccountMasked *string
	RemitAccountHash       *string
	PayloadHash            string
}

// PersistInvoice upserts vendor, invoice header, lines (atomic replace),
// and remit account within a single transaction, per spec's §4.8 ordering.
// It does not index search; that is the orchestrator's responsibility,
// performed outside this transaction on a best-effort basis.
func (r *Repository) PersistInvoice(ctx context.Context, tenantID string, in domain.InvoiceIn, normNumber string, maskedAccount, accountHash *string, payloadHash string, rawJSON datatypes.JSONMap) error {
	invoiceDate, err := in.ParsedDate()
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, tenantID); err != nil {
			return err
		}

		if err := tx.Exec(
			`INSERT INTO vendors (tenant_id, vendor_id, vendor_name)
			 VALUES (?, ?, ?)
			 ON CONFLICT (tenant_id, vendor_id) DO UPDATE SET vendor_name = EXCLUDED.vendor_name`,
			tenantID, in.VendorID, in.VendorName,
		).Error; err != nil {
			return err
		}

		var taxTotal float64
		if in.TaxTotal != nil {
			taxTotal = *in.TaxTotal
		}

		if err := tx.Exec(
			`INSERT INTO invoices (
			   tenant_id, invoice_id, payload_hash, vendor_id, vendor_name, invoice_number,
			   invoice_number_norm, invoice_date, currency, total, tax_total, po_number,
			   remit_bank_account_masked, remit_account_hash, remit_name, pdf_hash, terms, raw_json,
			   created_at, updated_at
			 )
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,NOW(),NOW())
			 ON CONFLICT (tenant_id, invoice_id) DO UPDATE SET
			   payload_hash = EXCLUDED.payload_hash,
			   invoice_number = EXCLUDED.invoice_number,
			   invoice_number_norm = EXCLUDED.invoice_number_norm,
			   invoice_date = EXCLUDED.invoice_date,
			   currency = EXCLUDED.currency,
			   total = EXCLUDED.total,
			   tax_total = EXCLUDED.tax_total,
			   po_number = EXCLUDED.po_number,
			   remit_bank_account_masked = EXCLUDED.remit_bank_account_masked,
			   remit_account_hash = EXCLUDED.remit_account_hash,
			   remit_name = EXCLUDED.remit_name,
			   pdf_hash = EXCLUDED.pdf_hash,
			   terms = EXCLUDED.terms,
			   raw_json = EXCLUDED.raw_json,
			   updated_at = NOW()`,
			tenantID, in.InvoiceID, payloadHash, in.VendorID, in.VendorName, in.InvoiceNumber,
			normNumber, invoiceDate, in.Currency, domain.ToMinorUnits(in.Total), domain.ToMinorUnits(taxTotal), in.PONumber,
			maskedAccount, accountHash, in.RemitName, in.PDFHash, in.Terms, rawJSON,
		).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			`DELETE FROM invoice_lines WHERE tenant_id = ? AND invoice_id = ?`,
			tenantID, in.InvoiceID,
		).Error; err != nil {
			return err
		}

		for idx, line := range in.LineItems {
			if err := tx.Exec(
				`INSERT INTO invoice_lines (tenant_id, invoice_id, line_no, sku, "desc", qty, unit_price, amount, gl_code, cost_center)
				 VALUES (?,?,?,?,?,?,?,?,?,?)`,
				tenantID, in.InvoiceID, idx+1, line.SKU, line.Desc,
				domain.ToMinorUnits(line.Qty), domain.ToMinorUnits(line.UnitPrice), domain.ToMinorUnits(line.Amount),
				line.GLCode, line.CostCenter,
			).Error; err != nil {
				return err
			}
		}

		if accountHash != nil && *accountHash != "" {
			if err := tx.Exec(
				`INSERT INTO vendor_remit_accounts (tenant_id, vendor_id, remit_account_hash, remit_name, first_seen, last_seen)
				 VALUES (?,?,?,?,NOW(),NOW())
				 ON CONFLICT (tenant_id, vendor_id, remit_account_hash)
				   DO UPDATE SET last_seen = NOW(), remit_name = EXCLUDED.remit_name`,
				tenantID, in.VendorID, *accountHash, in.RemitName,
			).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// GetInvoice re-reads the persisted invoice header, the single source of
// truth for everything downstream of persistence.
func (r *Repository) GetInvoice(ctx context.Context, tenantID, invoiceID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// RetrieveCandidates implements the orchestrator's candidate-lookup port by
// delegating to the blocking-based retrieval query against this
// repository's connection.
func (r *Repository) RetrieveCandidates(ctx context.Context, q retrieval.Query) ([]domain.Invoice, error) {
	return retrieval.Retrieve(ctx, r.db, q)
}

// GetInvoiceLines returns an invoice's lines ordered by line_no.
func (r *Repository) GetInvoiceLines(ctx context.Context, tenantID, invoiceID string) ([]domain.LineItem, error) {
	var lines []domain.LineItem
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("line_no").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CountVendorInvoices implements anomaly.Store.
func (r *Repository) CountVendorInvoices(ctx context.Context, tenantID, vendorID, excludeInvoiceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("tenant_id = ? AND vendor_id = ? AND invoice_id <> ?", tenantID, vendorID, excludeInvoiceID).
		Count(&count).Error
	return count, err
}

// GetVendorBaseline implements anomaly.Store.
func (r *Repository) GetVendorBaseline(ctx context.Context, tenantID, vendorID string) (*anomaly.Baseline, error) {
	var row domain.VendorAmountBaseline
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_id = ?", tenantID, vendorID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &anomaly.Baseline{MeanTotal: row.MeanTotal, StdTotal: row.StdTotal, SampleCount: row.SampleCount}, nil
}

// GetRemitAccount implements anomaly.Store.
func (r *Repository) GetRemitAccount(ctx context.Context, tenantID, vendorID, remitHash string) (*anomaly.RemitAccount, error) {
	var row domain.VendorRemitAccount
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_id = ? AND remit_account_hash = ?", tenantID, vendorID, remitHash).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &anomaly.RemitAccount{FirstSeen: row.FirstSeen, LastSeen: row.LastSeen}, nil
}

// ListTenantIDs returns every tenant with at least one invoice, driving
// the baseline recompute job's per-tenant fan-out.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("invoices").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// VendorTotalStats is one row of the per-vendor amount aggregate used to
// recompute a baseline.
type VendorTotalStats struct {
	VendorID    string
	MeanTotal   float64
	StdTotal    float64
	SampleCount int64
}

// AggregateVendorTotals groups every invoice total for tenantID by vendor,
// computing the population mean/stddev/count the baseline job persists.
// Aggregation happens in SQL so it scales with invoice volume rather than
// pulling every row into the process; the /100.0 converts the stored
// minor-unit total back to decimal units before the mean/stddev are taken.
func (r *Repository) AggregateVendorTotals(ctx context.Context, tenantID string) ([]VendorTotalStats, error) {
	var rows []VendorTotalStats
	err := r.db.WithContext(ctx).
		Table("invoices").
		Select("vendor_id, AVG(total) / 100.0 AS mean_total, COALESCE(STDDEV_POP(total), 0) / 100.0 AS std_total, COUNT(*) AS sample_count").
		Where("tenant_id = ?", tenantID).
		Group("vendor_id").
		Scan(&rows).Error
	return rows, err
}

// UpsertVendorBaseline writes the recomputed per-vendor amount baseline,
// overwriting any prior row for the same tenant/vendor.
func (r *Repository) UpsertVendorBaseline(ctx context.Context, tenantID string, stats VendorTotalStats) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO vendor_amount_baselines (tenant_id, vendor_id, mean_total, std_total, sample_count, updated_at)
		 VALUES (?,?,?,?,?,NOW())
		 ON CONFLICT (tenant_id, vendor_id) DO UPDATE SET
		   mean_total = EXCLUDED.mean_total,
		   std_total = EXCLUDED.std_total,
		   sample_count = EXCLUDED.sample_count,
		   updated_at = NOW()`,
		tenantID, stats.VendorID, stats.MeanTotal, stats.StdTotal, stats.SampleCount,
	).Error
}

// GetThreshold reads a per-tenant config override, honoring the source's
// polymorphic value encoding (bare number or {"value": n}); unparseable or
// missing rows fall back to def without error.
func (r *Repository) GetThreshold(ctx context.Context, tenantID, key string, def float64) (float64, error) {
	if cached, ok := r.thresholds.Get(tenantID, key); ok {
		return cached, nil
	}

	value, err := r.readThreshold(ctx, tenantID, key, def)
	if err != nil {
		return 0, err
	}

	r.thresholds.Set(tenantID, key, value)
	return value, nil
}

func (r *Repository) readThreshold(ctx context.Context, tenantID, key string, def float64) (float64, error) {
	var row domain.Config
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND scope = ? AND key = ?", tenantID, "global", key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}

	var bare float64
	if err := json.Unmarshal(row.Value, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(row.Value, &wrapped); err == nil {
		return wrapped.Value, nil
	}

	return def, nil
}

// UpsertCase opens or refreshes a manual-review case for (tenant, invoice),
// reusing any existing case_id for the invoice. Decisions outside
// {HOLD, REVIEW} are a no-op.
func (r *Repository) UpsertCase(ctx context.Context, tenantID, invoiceID, decision string) (string, error) {
	if decision != domain.DecisionHold && decision != domain.DecisionReview {
		return "", nil
	}

	var existing domain.Case
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		First(&existing).Error

	caseID := existing.CaseID
	if errors.Is(err, gorm.ErrRecordNotFound) {
		caseID = "case_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	} else if err != nil {
		return "", err
	}

	slaDue := time.Now().Add(48 * time.Hour)
	err = r.db.WithContext(ctx).Exec(
		`INSERT INTO cases (tenant_id, case_id, invoice_id, status, sla_due, created_at, updated_at)
		 VALUES (?,?,?,?,?,NOW(),NOW())
		 ON CONFLICT (tenant_id, case_id)
		   DO UPDATE SET status = EXCLUDED.status, updated_at = NOW(), sla_due = EXCLUDED.sla_due`,
		tenantID, caseID, invoiceID, domain.CaseStatusOpen, slaDue,
	).Error
	if err != nil {
		return "", err
	}
	return caseID, nil
}

// PersistDecision appends a decision row with a fresh decision_id.
func (r *Repository) PersistDecision(ctx context.Context, tenantID, invoiceID string, score float64, decision string, reasons []string, top []domain.MatchResult) error {
	topJSON, err := json.Marshal(top)
	if err != nil {
		return err
	}

	explanations := map[string]float64{}
	if len(top) > 0 {
		explanations = top[0].Features
	}
	explanationsJSON, err := json.Marshal(explanations)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO decisions (
		   tenant_id, decision_id, invoice_id, model_id, model_version, ruleset_version,
		   risk_score, decision, reason_codes, top_matches, explanations, created_at
		 ) VALUES (?,?,?,?,?,?,?,?,?,?,?,NOW())`,
		tenantID, "dec_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:12], invoiceID, "dup_model", "v1", "r1",
		score, decision, pq.StringArray(reasons), datatypes.JSON(topJSON), datatypes.JSON(explanationsJSON),
	).Error
}

// GetLatestDecision returns the most recent decision row for an invoice.
func (r *Repository) GetLatestDecision(ctx context.Context, tenantID, invoiceID string) (*domain.Decision, error) {
	var dec domain.Decision
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at DESC").
		First(&dec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDecisionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dec, nil
}

// AppendAudit appends a single audit log entry.
func (r *Repository) AppendAudit(ctx context.Context, tenantID, actor, action, entity, entityID string, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO audit_log (id, tenant_id, actor, action, entity, entity_id, payload, created_at)
		 VALUES (?,?,?,?,?,?,?,NOW())`,
		r.genID.Generate(), tenantID, actor, action, entity, entityID, datatypes.JSON(payloadJSON),
	).Error
}
