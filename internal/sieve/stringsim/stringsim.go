// Package stringsim wraps Jaro-Winkler string similarity for the feature
// extractor and rule engine.
package stringsim

import "github.com/xrash/smetrics"

// JaroWinkler returns normalized similarity in [0,1], 1 meaning identical,
// matching rapidfuzz's JaroWinkler.normalized_similarity semantics used by
// the source implementation.
func JaroWinkler(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// Distance returns 1 - JaroWinkler(a, b), the edit-cost form consumed by
// the feature extractor's invnum_edit and line-assignment desc_cost.
func Distance(a, b string) float64 {
	return 1.0 - JaroWinkler(a, b)
}
