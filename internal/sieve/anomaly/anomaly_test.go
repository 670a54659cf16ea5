package anomaly

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	hist     int64
	baseline *Baseline
	remit    *RemitAccount
}

func (f fakeStore) CountVendorInvoices(ctx context.Context, tenantID, vendorID, excludeInvoiceID string) (int64, error) {
	return f.hist, nil
}

func (f fakeStore) GetVendorBaseline(ctx context.Context, tenantID, vendorID string) (*Baseline, error) {
	return f.baseline, nil
}

func (f fakeStore) GetRemitAccount(ctx context.Context, tenantID, vendorID, remitHash string) (*RemitAccount, error) {
	return f.remit, nil
}

func TestScoreAmountOutlier(t *testing.T) {
	store := fakeStore{hist: 50, baseline: &Baseline{MeanTotal: 100, StdTotal: 10, SampleCount: 50}}
	prob, reasons, err := Score(context.Background(), store, Input{Total: 200})
	if err != nil {
		t.Fatal(err)
	}
	hasReason := false
	for _, r := range reasons {
		if r == "UNIT_PRICE_OUTLIER" {
			hasReason = true
		}
	}
	if !hasReason {
		t.Fatalf("expected UNIT_PRICE_OUTLIER for z=10.0, got reasons=%v", reasons)
	}
	if prob > 1.0 {
		t.Fatalf("anomaly prob must be capped at 1.0, got %v", prob)
	}
}

func TestScoreColdVendorDampening(t *testing.T) {
	store := fakeStore{hist: 2, baseline: &Baseline{MeanTotal: 100, StdTotal: 10, SampleCount: 20}}
	// z = |130-100|/10 = 3.0
	prob, _, err := Score(context.Background(), store, Input{Total: 130})
	if err != nil {
		t.Fatal(err)
	}
	want := (0.1 + 0.6) * 0.8
	if diff := prob - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("prob = %v, want %v", prob, want)
	}
}

func TestScoreBankChangeNewAccount(t *testing.T) {
	hash := "H2"
	store := fakeStore{hist: 10, baseline: nil, remit: nil}
	_, reasons, err := Score(context.Background(), store, Input{Total: 100, RemitAccountHash: &hash})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range reasons {
		if r == "BANK_CHANGE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BANK_CHANGE when remit account never seen before, got %v", reasons)
	}
}

func TestScoreBankChangeRecentlyFirstSeen(t *testing.T) {
	hash := "H1"
	now := time.Now()
	store := fakeStore{hist: 10, remit: &RemitAccount{FirstSeen: now.Add(-10 * time.Second), LastSeen: now}}
	_, reasons, err := Score(context.Background(), store, Input{Total: 100, RemitAccountHash: &hash})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range reasons {
		if r == "BANK_CHANGE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BANK_CHANGE when remit row first observed within window, got %v", reasons)
	}
}

func TestScoreNoBankChangeEstablishedAccount(t *testing.T) {
	hash := "H1"
	now := time.Now()
	store := fakeStore{hist: 10, remit: &RemitAccount{FirstSeen: now.Add(-48 * time.Hour), LastSeen: now}}
	_, reasons, err := Score(context.Background(), store, Input{Total: 100, RemitAccountHash: &hash})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range reasons {
		if r == "BANK_CHANGE" {
			t.Fatalf("did not expect BANK_CHANGE for long-established account, got %v", reasons)
		}
	}
}

func TestScoreBoundedZeroToOne(t *testing.T) {
	store := fakeStore{hist: 100, baseline: &Baseline{MeanTotal: 1, StdTotal: 0.0001, SampleCount: 100}}
	hash := "H"
	prob, _, err := Score(context.Background(), store, Input{Total: 1_000_000, RemitAccountHash: &hash})
	if err != nil {
		t.Fatal(err)
	}
	if prob < 0 || prob > 1 {
		t.Fatalf("prob out of [0,1]: %v", prob)
	}
}
