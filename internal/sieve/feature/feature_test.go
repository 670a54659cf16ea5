package feature

import "testing"

func TestLineAssignFeaturesIdenticalCoverage(t *testing.T) {
	lines := []LineNorm{
		{DescNorm: "paper a4", UnitPrice: 10, Qty: 10, Amount: 100},
	}
	f := LineAssignFeatures(lines, lines)
	if f.LineCoveragePct < 0.99 {
		t.Fatalf("expected near-full coverage for identical lines, got %v", f.LineCoveragePct)
	}
	if f.LineCoveragePct < 0 || f.LineCoveragePct > 1 {
		t.Fatalf("coverage out of [0,1]: %v", f.LineCoveragePct)
	}
}

func TestLineAssignFeaturesEmptyCandidate(t *testing.T) {
	lines := []LineNorm{{DescNorm: "paper a4", UnitPrice: 10, Qty: 10, Amount: 100}}
	f := LineAssignFeatures(lines, nil)
	if f.LineCoveragePct != 0 {
		t.Fatalf("expected coverage=0 for empty candidate, got %v", f.LineCoveragePct)
	}
	if f.CountNewItems != 1 {
		t.Fatalf("expected count_new_items=1, got %v", f.CountNewItems)
	}
	if f.UnmatchedAmountFrac != 1.0 {
		t.Fatalf("expected unmatched=1.0 when total>0, got %v", f.UnmatchedAmountFrac)
	}
	if f.MedianUnitPriceDiff != 100 {
		t.Fatalf("expected median_unit_price_diff=total_amount_a=100, got %v", f.MedianUnitPriceDiff)
	}
}

func TestLineAssignFeaturesEmptyBothTotalZero(t *testing.T) {
	f := LineAssignFeatures(nil, nil)
	if f.UnmatchedAmountFrac != 1.0 {
		t.Fatalf("expected unmatched=1 when base total is 0, got %v", f.UnmatchedAmountFrac)
	}
}

func TestTextCosineBounds(t *testing.T) {
	a := []LineNorm{{DescNorm: "printer ink black"}}
	b := []LineNorm{{DescNorm: "printer ink blue"}}
	v := TextCosine(a, b)
	if v < 0 || v > 1 {
		t.Fatalf("text cosine out of [0,1]: %v", v)
	}
	same := TextCosine(a, a)
	if same < 0.99 {
		t.Fatalf("identical text should be near 1, got %v", same)
	}
}

func TestHeaderFeaturesSamePOAndCurrency(t *testing.T) {
	po := "PO-1"
	a := HeaderInput{Total: 100, PONumber: &po, Currency: "USD", InvoiceNumberNorm: "123"}
	b := HeaderInput{Total: 100, PONumber: &po, Currency: "USD", InvoiceNumberNorm: "123"}
	f := HeaderFeatures(a, b)
	if f.SamePO != 1 || f.SameCurrency != 1 {
		t.Fatalf("expected same_po and same_currency = 1, got %+v", f)
	}
	if f.InvnumEdit != 0 {
		t.Fatalf("identical invoice numbers should have invnum_edit=0, got %v", f.InvnumEdit)
	}
}
