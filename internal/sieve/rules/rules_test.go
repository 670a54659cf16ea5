package rules

import "testing"

func TestSamePONearTotal(t *testing.T) {
	po := "PO-1"
	if !SamePONearTotal(&po, &po, 100.00, 100.40, 5) {
		t.Fatalf("expected SAME_PO_NEAR_TOTAL to fire for 100.00 vs 100.40 within 5 days")
	}
	if SamePONearTotal(&po, &po, 100.00, 106.00, 5) {
		t.Fatalf("did not expect SAME_PO_NEAR_TOTAL for 100.00 vs 106.00")
	}
}

func TestSamePONearTotalRequiresBothPOs(t *testing.T) {
	po := "PO-1"
	if SamePONearTotal(&po, nil, 100, 100, 1) {
		t.Fatalf("should not fire when one PO is missing")
	}
}

func TestSameInvnumNorm(t *testing.T) {
	if !SameInvnumNorm("123", "123") {
		t.Fatalf("expected exact match to fire")
	}
	if SameInvnumNorm("", "") {
		t.Fatalf("empty strings should not trigger EXACT_INVNUM")
	}
}

func TestPDFNearDup(t *testing.T) {
	h1, h2 := "abc", "abc"
	if !PDFNearDup(&h1, &h2, nil) {
		t.Fatalf("expected equal hashes to trigger PDF_NEAR_DUP")
	}
	jaccard := 0.95
	if !PDFNearDup(nil, nil, &jaccard) {
		t.Fatalf("expected high shingle jaccard to trigger PDF_NEAR_DUP")
	}
	low := 0.5
	if PDFNearDup(nil, nil, &low) {
		t.Fatalf("did not expect low shingle jaccard to trigger")
	}
}

func TestApplyOrderAndBankChange(t *testing.T) {
	reasons := Apply(Context{
		Header:     HeaderPair{InvnumNormA: "1", InvnumNormB: "1"},
		BankChange: true,
	})
	if len(reasons) != 2 || reasons[0] != "EXACT_INVNUM" || reasons[1] != "BANK_CHANGE" {
		t.Fatalf("unexpected reasons/order: %v", reasons)
	}
}
