// Package retrieval implements the blocking-based candidate query: cheap
// predicates that narrow the same-vendor invoice history down to a small
// set worth running full feature extraction against.
package retrieval

import (
	"context"
	"time"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"gorm.io/gorm"
)

// DefaultCap is the default candidate-set size limit.
const DefaultCap = 200

// Query describes the invoice driving candidate retrieval.
type Query struct {
	TenantID          string
	VendorID          string
	InvoiceID         string
	Total             int64
	InvoiceDate       time.Time
	PONumber          *string
	InvoiceNumberNorm string
	RemitAccountHash  *string
	Cap               int
}

// Retrieve returns up to Query.Cap candidate prior invoices for the same
// tenant+vendor (excluding the invoice itself) matching any of the four
// blocking predicates: same-month-and-total, same PO, same normalized
// invoice number, or same remit account hash. Order is unspecified;
// downstream ranks by model score.
func Retrieve(ctx context.Context, db *gorm.DB, q Query) ([]domain.Invoice, error) {
	cap := q.Cap
	if cap <= 0 {
		cap = DefaultCap
	}

	monthStart := time.Date(q.InvoiceDate.Year(), q.InvoiceDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	base := db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_id = ? AND invoice_id <> ?", q.TenantID, q.VendorID, q.InvoiceID)

	or := db.
		Where("total = ? AND invoice_date >= ? AND invoice_date < ?", q.Total, monthStart, monthEnd)

	if q.PONumber != nil && *q.PONumber != "" {
		or = or.Or("po_number IS NOT NULL AND po_number = ?", *q.PONumber)
	}
	if q.InvoiceNumberNorm != "" {
		or = or.Or("invoice_number_norm = ?", q.InvoiceNumberNorm)
	}
	if q.RemitAccountHash != nil && *q.RemitAccountHash != "" {
		or = or.Or("remit_account_hash IS NOT NULL AND remit_account_hash = ?", *q.RemitAccountHash)
	}

	var candidates []domain.Invoice
	err := base.Where(or).Order("invoice_id").Limit(cap).Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
