package fuser

import (
	"errors"
	"testing"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

func TestFuseScoresBounds(t *testing.T) {
	for _, dup := range []float64{0, 0.5, 1} {
		for _, anom := range []float64{0, 0.5, 1} {
			s := FuseScores(dup, anom, false, 1)
			if s < 0 || s > 100 {
				t.Fatalf("score out of [0,100]: %v", s)
			}
		}
	}
}

func TestFuseScoresBankChangeFloor(t *testing.T) {
	s := FuseScores(0, 0, true, 0)
	if s < 80 {
		t.Fatalf("bank_change=true must force score>=80, got %v", s)
	}
}

func TestDecideMonotone(t *testing.T) {
	d, err := Decide(80.0, 50, 80)
	if err != nil || d != domain.DecisionHold {
		t.Fatalf("expected HOLD at score==T_hold, got %v err=%v", d, err)
	}
	d, err = Decide(79.999, 50, 80)
	if err != nil || d != domain.DecisionReview {
		t.Fatalf("expected REVIEW just under T_hold, got %v", d)
	}
	d, err = Decide(49.999, 50, 80)
	if err != nil || d != domain.DecisionPass {
		t.Fatalf("expected PASS under T_review, got %v", d)
	}
}

func TestDecideInvalidThresholds(t *testing.T) {
	_, err := Decide(50, 80, 50)
	if !errors.Is(err, domain.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
}
