// Package normalize implements the pure header/line canonicalization
// functions the rest of the scoring pipeline depends on. None of these
// functions touch global state or fail on well-formed input.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

var (
	invPrefix  = regexp.MustCompile(`(?i)^(INVOICE|INV|BILL)`)
	spacePunct = regexp.MustCompile(`[\s\-_/]`)
	nonWord    = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpace = regexp.MustCompile(`\s+`)
	nonDigit   = regexp.MustCompile(`\D`)
)

// InvnumNorm upper-cases, strips separator punctuation, removes a single
// leading INVOICE/INV/BILL prefix, and strips leading zeros. The empty
// result collapses to "0" so the output is never empty.
func InvnumNorm(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = spacePunct.ReplaceAllString(s, "")
	s = invPrefix.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

// DescNorm lower-cases, replaces non-alphanumeric runes with a space,
// collapses whitespace runs, and trims. Output only ever contains
// [a-z0-9 ] with no leading/trailing/double spaces.
func DescNorm(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// MaskAccountLast4 extracts decimal digits from a bank account/IBAN string
// and returns "****" followed by the last 4, or bare "****" if no digits
// are present. Empty input returns nil.
func MaskAccountLast4(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	digits := nonDigit.ReplaceAllString(*s, "")
	if digits == "" {
		masked := "****"
		return &masked
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	masked := "****" + digits
	return &masked
}

// HashAccount returns the hex SHA-256 of the UTF-8 bytes of s, or nil for
// nil/empty input.
func HashAccount(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(*s))
	hash := hex.EncodeToString(sum[:])
	return &hash
}

// TextBlob builds the lower-cased, space-joined indexable text for an
// invoice: vendor name, PO number, terms, and each line's SKU and
// description, omitting empty fragments.
func TextBlob(vendorName string, poNumber, terms *string, lines []domain.LineItemIn) string {
	parts := make([]string, 0, 3+2*len(lines))
	parts = append(parts, vendorName)
	if poNumber != nil {
		parts = append(parts, *poNumber)
	}
	if terms != nil {
		parts = append(parts, *terms)
	}
	for _, line := range lines {
		if line.SKU != nil {
			parts = append(parts, *line.SKU)
		}
		parts = append(parts, line.Desc)
	}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// PayloadHash returns a stable SHA-256 over a key-sorted flattening of the
// invoice payload, used to detect byte-identical resubmissions.
func PayloadHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, fields[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
