// Package feature extracts header similarity, optimal line-assignment, and
// text-cosine-proxy features for a (base, candidate) invoice pair.
package feature

import (
	"math"
	"sort"
	"strings"

	"github.com/smallbiznis/sieve/internal/sieve/assignment"
	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/internal/sieve/stringsim"
)

const (
	alpha = 0.7
	beta  = 0.2
	gamma = 0.1
)

// LineNorm is a line item pre-normalized for assignment and text features.
type LineNorm struct {
	DescNorm  string
	UnitPrice float64
	Qty       float64
	Amount    float64
}

// HeaderInput is the subset of an invoice header needed for similarity
// comparison between two invoices.
type HeaderInput struct {
	Total             float64
	InvoiceDateUnix   int64 // day-precision unix seconds (UTC midnight)
	PONumber          *string
	Currency          string
	TaxTotal          float64
	RemitAccountHash  *string
	RemitName         *string
	InvoiceNumberNorm string
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HeaderFeatures computes the 8 header-level similarity features.
func HeaderFeatures(a, b HeaderInput) domain.Features {
	var f domain.Features

	f.AbsTotalDiffPct = math.Abs(a.Total-b.Total) / math.Max(math.Abs(a.Total), 1.0)

	daySeconds := int64(24 * 60 * 60)
	daysDiff := (a.InvoiceDateUnix - b.InvoiceDateUnix) / daySeconds
	if daysDiff < 0 {
		daysDiff = -daysDiff
	}
	f.DaysDiff = float64(daysDiff)

	if a.PONumber != nil && *a.PONumber != "" && strOrEmpty(a.PONumber) == strOrEmpty(b.PONumber) {
		f.SamePO = 1.0
	}

	if a.Currency == b.Currency {
		f.SameCurrency = 1.0
	}

	if round2(a.TaxTotal) == round2(b.TaxTotal) {
		f.SameTaxTotal = 1.0
	}

	if a.RemitAccountHash != nil && b.RemitAccountHash != nil && *a.RemitAccountHash != *b.RemitAccountHash {
		f.BankChangeFlag = 1.0
	}

	if strOrEmpty(a.RemitName) != strOrEmpty(b.RemitName) {
		f.PayeeNameChangeFlag = 1.0
	}

	f.InvnumEdit = stringsim.Distance(a.InvoiceNumberNorm, b.InvoiceNumberNorm)

	return f
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineAssignFeatures computes the 4 line-assignment features via an
// optimal min-cost bipartite assignment between base (rows) and candidate
// (columns) lines.
func LineAssignFeatures(aLines, bLines []LineNorm) domain.Features {
	var f domain.Features

	if len(aLines) == 0 || len(bLines) == 0 {
		var totalAmount float64
		for _, l := range aLines {
			totalAmount += l.Amount
		}
		f.LineCoveragePct = 0.0
		if totalAmount != 0 {
			f.UnmatchedAmountFrac = totalAmount / math.Max(totalAmount, 1.0)
		} else {
			f.UnmatchedAmountFrac = 1.0
		}
		f.CountNewItems = float64(len(aLines))
		f.MedianUnitPriceDiff = totalAmount
		return f
	}

	n, m := len(aLines), len(bLines)
	cost := make([][]float64, n)
	for i := 0; i < n; i++ {
		cost[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			descCost := stringsim.Distance(aLines[i].DescNorm, bLines[j].DescNorm)
			upTerm := math.Min(math.Abs(aLines[i].UnitPrice-bLines[j].UnitPrice)/math.Max(math.Abs(aLines[i].UnitPrice), 1.0), 5.0)
			qtyTerm := math.Min(math.Abs(aLines[i].Qty-bLines[j].Qty)/math.Max(math.Abs(aLines[i].Qty), 1.0), 5.0)
			cost[i][j] = alpha*descCost + beta*upTerm + gamma*qtyTerm
		}
	}

	rowToCol := assignment.Solve(cost)

	var matchedAmount, totalAmount float64
	matchedRows := 0
	for i, l := range aLines {
		totalAmount += l.Amount
		if rowToCol[i] >= 0 {
			matchedAmount += l.Amount
			matchedRows++
		}
	}

	unmatchedAmount := math.Max(totalAmount-matchedAmount, 0.0)
	var unmatchedFrac float64
	if totalAmount != 0 {
		unmatchedFrac = unmatchedAmount / math.Max(totalAmount, 1.0)
	} else {
		unmatchedFrac = 1.0
	}

	diffs := make([]float64, 0, matchedRows)
	for i, j := range rowToCol {
		if j >= 0 {
			diffs = append(diffs, math.Abs(aLines[i].UnitPrice-bLines[j].UnitPrice))
		}
	}

	f.LineCoveragePct = 1.0 - unmatchedFrac
	f.UnmatchedAmountFrac = unmatchedFrac
	f.CountNewItems = math.Max(0, float64(len(aLines)-matchedRows))
	f.MedianUnitPriceDiff = median(diffs)

	return f
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0
}

// TrigramSet builds the character-trigram set of s (n=3). Strings shorter
// than 3 runes produce an empty set.
func TrigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < 3 {
		return set
	}
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// TextCosine is the character-trigram cosine-proxy similarity between the
// space-joined desc_norm text of two line sets.
func TextCosine(aLines, bLines []LineNorm) float64 {
	aText := joinDescNorm(aLines)
	bText := joinDescNorm(bLines)
	a := TrigramSet(aText)
	b := TrigramSet(bText)

	overlap := 0
	for k := range a {
		if _, ok := b[k]; ok {
			overlap++
		}
	}
	denom := len(a) + len(b)
	if denom == 0 {
		denom = 1
	}
	return math.Min(1.0, 2.0*float64(overlap)/float64(denom))
}

func joinDescNorm(lines []LineNorm) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.DescNorm
	}
	return strings.Join(parts, " ")
}

// Extract composes header, line-assignment, and text-cosine features for a
// (base, candidate) pair into the fixed 13-field layout.
func Extract(a, b HeaderInput, aLines, bLines []LineNorm) domain.Features {
	header := HeaderFeatures(a, b)
	lineFeats := LineAssignFeatures(aLines, bLines)

	return domain.Features{
		AbsTotalDiffPct:     header.AbsTotalDiffPct,
		DaysDiff:            header.DaysDiff,
		SamePO:              header.SamePO,
		SameCurrency:        header.SameCurrency,
		SameTaxTotal:        header.SameTaxTotal,
		BankChangeFlag:      header.BankChangeFlag,
		PayeeNameChangeFlag: header.PayeeNameChangeFlag,
		InvnumEdit:          header.InvnumEdit,
		LineCoveragePct:     lineFeats.LineCoveragePct,
		UnmatchedAmountFrac: lineFeats.UnmatchedAmountFrac,
		CountNewItems:       lineFeats.CountNewItems,
		MedianUnitPriceDiff: lineFeats.MedianUnitPriceDiff,
		TextCosine:          TextCosine(aLines, bLines),
	}
}
