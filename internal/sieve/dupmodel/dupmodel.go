// Package dupmodel predicts the probability that a candidate invoice is a
// duplicate of a base invoice, given the fixed 13-field feature vector. The
// model is resolved once, process-wide, and is always the fixed-weight
// fallback logistic regression: a configured artifact path is checked for
// existence, but this package contains no decoder for trained artifacts and
// never loads one. Any other implementation of the Model interface can be
// passed to Predict directly.
package dupmodel

import (
	"math"
	"os"
	"sync"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

// Model predicts a duplicate probability for an already-ordered feature
// vector (domain.FeatureOrder).
type Model interface {
	PredictProba(vector [13]float64) float64
}

var fallbackWeights = [13]float64{
	-1.2,  // abs_total_diff_pct
	-0.03, // days_diff
	0.8,   // same_po
	0.3,   // same_currency
	0.2,   // same_tax_total
	-0.4,  // bank_change_flag (bank changes reduce dup probability)
	-0.1,  // payee_name_change_flag
	-1.5,  // invnum_edit (distance -> lower dup prob)
	1.6,   // line_coverage_pct
	-1.8,  // unmatched_amount_frac
	-0.4,  // count_new_items
	-0.05, // median_unit_price_diff
	2.2,   // text_cosine
}

const fallbackBias = -0.3

// fallbackModel is a fixed-weight logistic regression approximation used
// when no trained artifact is configured or present on disk.
type fallbackModel struct{}

func (fallbackModel) PredictProba(vector [13]float64) float64 {
	logit := fallbackBias
	for i, w := range fallbackWeights {
		logit += w * vector[i]
	}
	return 1.0 / (1.0 + math.Exp(-logit))
}

var (
	loadOnce    sync.Once
	cachedModel Model
)

// Load returns the process-wide duplicate model, loading it at most once.
// artifactPath is checked for existence but never deserialized, so every
// path, existing or not, resolves to the fallback model. Only the first
// call's artifactPath is consulted; later calls return the cached model.
func Load(artifactPath string) Model {
	loadOnce.Do(func() {
		if artifactPath != "" {
			if _, err := os.Stat(artifactPath); err == nil {
				// A file is present at artifactPath; it is not decoded, and
				// the deterministic fallback below is used.
			}
		}
		cachedModel = fallbackModel{}
	})
	return cachedModel
}

// Predict runs the process-wide model over features and clamps the result
// to [0,1]. Unknown/missing features are not possible by construction
// since Features is a fixed-layout record (domain.Features.Vector always
// supplies all 13 slots, defaulting absent values to their zero value).
func Predict(model Model, features domain.Features) float64 {
	p := model.PredictProba(features.Vector())
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
