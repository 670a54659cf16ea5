// Package fuser combines duplicate/anomaly/text signals into a single risk
// score and thresholded decision.
package fuser

import (
	"fmt"
	"math"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

// FuseScores combines a duplicate probability, an anomaly probability, a
// text-cosine duplicate proxy, and the bank-change flag into a risk score
// in [0,100]. A bank change forces the score into the HOLD band (>= 80,
// never below it) regardless of the other signals.
func FuseScores(dupProb, anomProb float64, bankChange bool, textDupProb float64) float64 {
	dupComponent := 0.7 * dupProb
	textComponent := 0.2 * math.Max(dupProb, textDupProb)
	anomalyComponent := 0.1 * anomProb
	score := (dupComponent + textComponent + anomalyComponent) * 100.0

	if bankChange {
		score = math.Min(100.0, score+15.0)
		score = math.Max(score, 80.0)
	}

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Decide returns HOLD/REVIEW/PASS for score against the per-tenant
// thresholds. holdThreshold must be >= reviewThreshold.
func Decide(score, reviewThreshold, holdThreshold float64) (string, error) {
	if holdThreshold < reviewThreshold {
		return "", fmt.Errorf("%w: hold_threshold (%v) must be >= review_threshold (%v)", domain.ErrInvalidThresholds, holdThreshold, reviewThreshold)
	}
	if score >= holdThreshold {
		return domain.DecisionHold, nil
	}
	if score >= reviewThreshold {
		return domain.DecisionReview, nil
	}
	return domain.DecisionPass, nil
}
