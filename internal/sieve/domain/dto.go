package domain

import "time"

// LineItemIn is one submitted invoice line.
type LineItemIn struct {
	Desc       string  `json:"desc" binding:"required"`
	Qty        float64 `json:"qty"`
	UnitPrice  float64 `json:"unit_price"`
	Amount     float64 `json:"amount"`
	SKU        *string `json:"sku,omitempty"`
	GLCode     *string `json:"gl_code,omitempty"`
	CostCenter *string `json:"cost_center,omitempty"`
}

// InvoiceIn is the POST /scoreInvoice request body.
type InvoiceIn struct {
	InvoiceID              string       `json:"invoice_id" binding:"required"`
	VendorID               string       `json:"vendor_id" binding:"required"`
	VendorName             string       `json:"vendor_name" binding:"required"`
	InvoiceNumber          string       `json:"invoice_number" binding:"required"`
	InvoiceDate            string       `json:"invoice_date" binding:"required"` // YYYY-MM-DD
	Currency               string       `json:"currency" binding:"required"`
	Total                  float64      `json:"total"`
	TaxTotal               *float64     `json:"tax_total,omitempty"`
	PONumber               *string      `json:"po_number,omitempty"`
	RemitBankIBANOrAccount *string      `json:"remit_bank_iban_or_account,omitempty"`
	RemitName              *string      `json:"remit_name,omitempty"`
	PDFHash                *string      `json:"pdf_hash,omitempty"`
	Terms                  *string      `json:"terms,omitempty"`
	LineItems              []LineItemIn `json:"line_items" binding:"required"`
}

// ParsedDate parses InvoiceDate at day precision (UTC midnight).
func (in InvoiceIn) ParsedDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", in.InvoiceDate, time.UTC)
}

// MatchResult is one ranked candidate with its similarity and raw features.
type MatchResult struct {
	InvoiceID  string             `json:"invoice_id"`
	Similarity float64            `json:"similarity"`
	Features   map[string]float64 `json:"features"`
}

// Explanation is a single feature/value pair surfaced to the caller.
type Explanation struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// ScoreResponse is the POST /scoreInvoice response body.
type ScoreResponse struct {
	RiskScore    float64       `json:"risk_score"`
	Decision     string        `json:"decision"`
	ReasonCodes  []string      `json:"reason_codes"`
	TopMatches   []MatchResult `json:"top_matches"`
	Explanations []Explanation `json:"explanations"`
}

// Features is the fixed 13-field layout consumed by the duplicate model,
// in the order FeatureOrder names them. Unknown keys are impossible by
// construction.
type Features struct {
	AbsTotalDiffPct      float64
	DaysDiff             float64
	SamePO               float64
	SameCurrency         float64
	SameTaxTotal         float64
	BankChangeFlag       float64
	PayeeNameChangeFlag  float64
	InvnumEdit           float64
	LineCoveragePct      float64
	UnmatchedAmountFrac  float64
	CountNewItems        float64
	MedianUnitPriceDiff  float64
	TextCosine           float64
}

// FeatureOrder is the fixed feature order the duplicate model was trained
// against; vector encoding/decoding must preserve it exactly.
var FeatureOrder = [13]string{
	"abs_total_diff_pct",
	"days_diff",
	"same_po",
	"same_currency",
	"same_tax_total",
	"bank_change_flag",
	"payee_name_change_flag",
	"invnum_edit",
	"line_coverage_pct",
	"unmatched_amount_frac",
	"count_new_items",
	"median_unit_price_diff",
	"text_cosine",
}

// Vector returns the feature values in FeatureOrder.
func (f Features) Vector() [13]float64 {
	return [13]float64{
		f.AbsTotalDiffPct,
		f.DaysDiff,
		f.SamePO,
		f.SameCurrency,
		f.SameTaxTotal,
		f.BankChangeFlag,
		f.PayeeNameChangeFlag,
		f.InvnumEdit,
		f.LineCoveragePct,
		f.UnmatchedAmountFrac,
		f.CountNewItems,
		f.MedianUnitPriceDiff,
		f.TextCosine,
	}
}

// Map renders the features as a name->value map for JSON explanations and
// for the rule engine's context, matching FeatureOrder's names.
func (f Features) Map() map[string]float64 {
	v := f.Vector()
	out := make(map[string]float64, len(FeatureOrder))
	for i, name := range FeatureOrder {
		out[name] = v[i]
	}
	return out
}

// Decision outcomes.
const (
	DecisionHold   = "HOLD"
	DecisionReview = "REVIEW"
	DecisionPass   = "PASS"
)

// Reason codes emitted by the rule engine and anomaly scorer.
const (
	ReasonExactInvnum       = "EXACT_INVNUM"
	ReasonSamePONearTotal   = "SAME_PO_NEAR_TOTAL"
	ReasonPDFNearDup        = "PDF_NEAR_DUP"
	ReasonBankChange        = "BANK_CHANGE"
	ReasonUnitPriceOutlier  = "UNIT_PRICE_OUTLIER"
)
