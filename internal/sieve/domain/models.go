// Package domain contains the persistence models and sentinel errors shared
// across the scoring pipeline.
package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// minorUnitScale is the fixed-point scale persisted amounts use: a stored
// value of 12345 represents 123.45. ToMinorUnits/fromMinorUnits convert at
// the domain boundary so total/tax_total/qty/unit_price/amount are stored
// as exact integers rather than floats, per the scoring spec's
// exact-decimal-storage requirement; feature math promotes back to
// float64 via the FooDecimal() accessors below.
const minorUnitScale = 100

// ToMinorUnits rounds a decimal amount to the nearest stored minor unit.
func ToMinorUnits(v float64) int64 {
	return int64(math.Round(v * minorUnitScale))
}

func fromMinorUnits(v int64) float64 {
	return float64(v) / minorUnitScale
}

// Vendor is the per-tenant vendor master row, upserted on every invoice write.
type Vendor struct {
	TenantID   string `gorm:"primaryKey;column:tenant_id"`
	VendorID   string `gorm:"primaryKey;column:vendor_id"`
	VendorName string `gorm:"column:vendor_name;not null"`
}

func (Vendor) TableName() string { return "vendors" }

// Invoice is the invoice header row.
type Invoice struct {
	TenantID               string            `gorm:"primaryKey;column:tenant_id"`
	InvoiceID              string            `gorm:"primaryKey;column:invoice_id"`
	VendorID               string            `gorm:"column:vendor_id;not null;index"`
	VendorName             string            `gorm:"column:vendor_name;not null"`
	InvoiceNumber          string            `gorm:"column:invoice_number;not null"`
	InvoiceNumberNorm      string            `gorm:"column:invoice_number_norm;not null;index"`
	InvoiceDate            time.Time         `gorm:"column:invoice_date;not null"`
	Currency               string            `gorm:"column:currency;not null"`
	Total                  int64             `gorm:"column:total;not null"`
	TaxTotal               int64             `gorm:"column:tax_total;not null;default:0"`
	PONumber               *string           `gorm:"column:po_number;index"`
	RemitBankAccountMasked *string           `gorm:"column:remit_bank_account_masked"`
	RemitAccountHash       *string           `gorm:"column:remit_account_hash;index"`
	RemitName              *string           `gorm:"column:remit_name"`
	PDFHash                *string           `gorm:"column:pdf_hash"`
	Terms                  *string           `gorm:"column:terms"`
	PayloadHash            string            `gorm:"column:payload_hash;not null"`
	RawJSON                datatypes.JSONMap `gorm:"column:raw_json;type:jsonb;not null;default:'{}'"`
	CreatedAt              time.Time         `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Invoice) TableName() string { return "invoices" }

// TotalDecimal and TaxTotalDecimal promote the stored minor-unit amounts
// back to float64 for feature extraction and comparison.
func (i Invoice) TotalDecimal() float64    { return fromMinorUnits(i.Total) }
func (i Invoice) TaxTotalDecimal() float64 { return fromMinorUnits(i.TaxTotal) }

// LineItem is one line of an invoice. Lines are fully replaced on re-persist
// of the same invoice.
type LineItem struct {
	TenantID   string  `gorm:"primaryKey;column:tenant_id"`
	InvoiceID  string  `gorm:"primaryKey;column:invoice_id"`
	LineNo     int     `gorm:"primaryKey;column:line_no"`
	SKU        *string `gorm:"column:sku"`
	Desc       string  `gorm:"column:desc;not null"`
	Qty        int64   `gorm:"column:qty;not null"`
	UnitPrice  int64   `gorm:"column:unit_price;not null"`
	Amount     int64   `gorm:"column:amount;not null"`
	GLCode     *string `gorm:"column:gl_code"`
	CostCenter *string `gorm:"column:cost_center"`
}

func (LineItem) TableName() string { return "invoice_lines" }

// QtyDecimal, UnitPriceDecimal, and AmountDecimal promote the stored
// minor-unit fields back to float64 for feature extraction.
func (l LineItem) QtyDecimal() float64       { return fromMinorUnits(l.Qty) }
func (l LineItem) UnitPriceDecimal() float64 { return fromMinorUnits(l.UnitPrice) }
func (l LineItem) AmountDecimal() float64    { return fromMinorUnits(l.Amount) }

// VendorRemitAccount tracks when a (vendor, remit account hash) pair was
// first and last observed.
type VendorRemitAccount struct {
	TenantID         string    `gorm:"primaryKey;column:tenant_id"`
	VendorID         string    `gorm:"primaryKey;column:vendor_id"`
	RemitAccountHash string    `gorm:"primaryKey;column:remit_account_hash"`
	RemitName        *string   `gorm:"column:remit_name"`
	FirstSeen        time.Time `gorm:"column:first_seen;not null"`
	LastSeen         time.Time `gorm:"column:last_seen;not null"`
}

func (VendorRemitAccount) TableName() string { return "vendor_remit_accounts" }

// VendorAmountBaseline holds the offline-maintained per-vendor amount
// distribution used by the anomaly scorer.
type VendorAmountBaseline struct {
	TenantID     string    `gorm:"primaryKey;column:tenant_id"`
	VendorID     string    `gorm:"primaryKey;column:vendor_id"`
	MeanTotal    float64   `gorm:"column:mean_total;not null"`
	StdTotal     float64   `gorm:"column:std_total;not null"`
	SampleCount  int64     `gorm:"column:sample_count;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (VendorAmountBaseline) TableName() string { return "vendor_amount_baselines" }

// Decision is an append-only scoring outcome. Latest row per invoice (by
// CreatedAt) is the effective decision.
type Decision struct {
	TenantID        string            `gorm:"primaryKey;column:tenant_id"`
	DecisionID      string            `gorm:"primaryKey;column:decision_id"`
	InvoiceID       string            `gorm:"column:invoice_id;not null;index"`
	ModelID         string            `gorm:"column:model_id;not null"`
	ModelVersion    string            `gorm:"column:model_version;not null"`
	RulesetVersion  string            `gorm:"column:ruleset_version;not null"`
	RiskScore       float64           `gorm:"column:risk_score;not null"`
	Decision        string            `gorm:"column:decision;not null"`
	ReasonCodes     pq.StringArray    `gorm:"column:reason_codes;type:text[]"`
	TopMatches      datatypes.JSON    `gorm:"column:top_matches;type:jsonb"`
	Explanations    datatypes.JSONMap `gorm:"column:explanations;type:jsonb"`
	CreatedAt       time.Time         `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Decision) TableName() string { return "decisions" }

// Case states. Only OPEN is minted by this service; downstream review tools
// own the remaining lifecycle.
const (
	CaseStatusOpen = "OPEN"
)

// Case is the manual-review record opened for HOLD/REVIEW decisions.
type Case struct {
	TenantID  string    `gorm:"primaryKey;column:tenant_id"`
	CaseID    string    `gorm:"primaryKey;column:case_id"`
	InvoiceID string    `gorm:"column:invoice_id;not null;index"`
	Status    string    `gorm:"column:status;not null"`
	SLADue    time.Time `gorm:"column:sla_due;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Case) TableName() string { return "cases" }

// AuditLog is an append-only action log.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   string            `gorm:"column:tenant_id;not null;index"`
	Actor      string            `gorm:"column:actor;not null"`
	Action     string            `gorm:"column:action;not null"`
	Entity     string            `gorm:"column:entity;not null"`
	EntityID   string            `gorm:"column:entity_id;not null"`
	Payload    datatypes.JSONMap `gorm:"column:payload;type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (AuditLog) TableName() string { return "audit_log" }

// Config is a per-tenant scoped override, e.g. T_hold/T_review. Value is
// stored as JSON because the source format is polymorphic (a bare number or
// {"value": n}).
type Config struct {
	TenantID string         `gorm:"primaryKey;column:tenant_id"`
	Scope    string         `gorm:"primaryKey;column:scope"`
	Key      string         `gorm:"primaryKey;column:key"`
	Value    datatypes.JSON `gorm:"column:value;type:jsonb"`
}

func (Config) TableName() string { return "configs" }
