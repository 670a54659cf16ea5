// Package rules implements the deterministic reason-code engine.
package rules

import (
	"math"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

// HeaderPair is the subset of two invoice headers the rule engine compares.
type HeaderPair struct {
	InvnumNormA, InvnumNormB string
	PONumberA, PONumberB     *string
	TotalA, TotalB           float64
	DaysDiff                 int
	PDFHashA, PDFHashB       *string
	ShingleJaccard           *float64
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SameInvnumNorm is the EXACT_INVNUM predicate.
func SameInvnumNorm(a, b string) bool {
	return a != "" && b != "" && a == b
}

// SamePONearTotal is the SAME_PO_NEAR_TOTAL predicate: both PO numbers
// equal and non-empty, totals within 0.5% of max(|total1|, 1) (the base
// invoice's total), and dates within 30 days.
func SamePONearTotal(po1, po2 *string, total1, total2 float64, daysDiff int) bool {
	p1, p2 := strOrEmpty(po1), strOrEmpty(po2)
	if p1 == "" || p2 == "" || p1 != p2 {
		return false
	}
	tolerance := math.Max(math.Abs(total1), 1.0)
	if math.Abs(total1-total2) > 0.005*tolerance {
		return false
	}
	return daysDiff <= 30
}

// PDFNearDup is the PDF_NEAR_DUP predicate: equal PDF hashes, or an
// optionally-supplied shingle-Jaccard score at or above 0.9.
func PDFNearDup(hashA, hashB *string, shingleJaccard *float64) bool {
	if hashA != nil && hashB != nil && *hashA != "" && *hashA == *hashB {
		return true
	}
	if shingleJaccard != nil && *shingleJaccard >= 0.9 {
		return true
	}
	return false
}

// Context is everything Apply needs to evaluate the rule set against the
// current top-ranked candidate.
type Context struct {
	Header     HeaderPair
	BankChange bool
}

// Apply evaluates the deterministic rule set and returns triggered reason
// codes in first-triggered order. The caller is responsible for
// de-duplicating against anomaly-scorer reasons.
func Apply(ctx Context) []string {
	var reasons []string

	if SameInvnumNorm(ctx.Header.InvnumNormA, ctx.Header.InvnumNormB) {
		reasons = append(reasons, domain.ReasonExactInvnum)
	}
	if SamePONearTotal(ctx.Header.PONumberA, ctx.Header.PONumberB, ctx.Header.TotalA, ctx.Header.TotalB, ctx.Header.DaysDiff) {
		reasons = append(reasons, domain.ReasonSamePONearTotal)
	}
	if PDFNearDup(ctx.Header.PDFHashA, ctx.Header.PDFHashB, ctx.Header.ShingleJaccard) {
		reasons = append(reasons, domain.ReasonPDFNearDup)
	}
	if ctx.BankChange {
		reasons = append(reasons, domain.ReasonBankChange)
	}

	return reasons
}
