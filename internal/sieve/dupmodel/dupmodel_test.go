package dupmodel

import (
	"testing"

	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

func TestPredictBounded(t *testing.T) {
	model := Load("")
	cases := []domain.Features{
		{},
		{LineCoveragePct: 1, TextCosine: 1, SamePO: 1, SameCurrency: 1, SameTaxTotal: 1},
		{AbsTotalDiffPct: 100, DaysDiff: 9999, UnmatchedAmountFrac: 1, CountNewItems: 50},
	}
	for _, f := range cases {
		p := Predict(model, f)
		if p < 0 || p > 1 {
			t.Fatalf("predicted probability out of [0,1]: %v for %+v", p, f)
		}
	}
}

func TestPredictHighSimilarityScoresHigher(t *testing.T) {
	model := Load("")
	low := Predict(model, domain.Features{InvnumEdit: 1, UnmatchedAmountFrac: 1})
	high := Predict(model, domain.Features{LineCoveragePct: 1, TextCosine: 1, SamePO: 1})
	if high <= low {
		t.Fatalf("expected high-similarity features to score higher: high=%v low=%v", high, low)
	}
}

func TestLoadIsCachedSingleton(t *testing.T) {
	a := Load("")
	b := Load("/nonexistent/path/model.bin")
	if a != b {
		t.Fatalf("Load should return the same process-wide cached model regardless of later calls")
	}
}
