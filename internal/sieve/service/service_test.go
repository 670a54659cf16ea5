package service

import (
	"context"
	"sort"
	"testing"

	"gorm.io/datatypes"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/ratelimit"
	"github.com/smallbiznis/sieve/internal/sieve/anomaly"
	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/internal/sieve/retrieval"
	"go.uber.org/zap"
)

type decisionRecord struct {
	invoiceID string
	score     float64
	decision  string
	reasons   []string
	top       []domain.MatchResult
}

type auditRecord struct {
	tenantID, actor, action, entity, entityID string
	payload                                   map[string]any
}

type fakeStore struct {
	invoices   map[string]domain.Invoice
	lines      map[string][]domain.LineItem
	baselines  map[string]anomaly.Baseline
	remits     map[string]anomaly.RemitAccount
	thresholds map[string]float64

	cases     map[string]string
	decisions []decisionRecord
	audits    []auditRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices:   map[string]domain.Invoice{},
		lines:      map[string][]domain.LineItem{},
		baselines:  map[string]anomaly.Baseline{},
		remits:     map[string]anomaly.RemitAccount{},
		thresholds: map[string]float64{},
		cases:      map[string]string{},
	}
}

func invKey(tenantID, invoiceID string) string { return tenantID + "|" + invoiceID }
func vendorKey(tenantID, vendorID string) string { return tenantID + "|" + vendorID }

func (f *fakeStore) PersistInvoice(ctx context.Context, tenantID string, in domain.InvoiceIn, normNumber string, maskedAccount, accountHash *string, payloadHash string, rawJSON datatypes.JSONMap) error {
	date, err := in.ParsedDate()
	if err != nil {
		return err
	}
	var taxTotal float64
	if in.TaxTotal != nil {
		taxTotal = *in.TaxTotal
	}
	f.invoices[invKey(tenantID, in.InvoiceID)] = domain.Invoice{
		TenantID:               tenantID,
		InvoiceID:              in.InvoiceID,
		VendorID:               in.VendorID,
		VendorName:             in.VendorName,
		InvoiceNumber:          in.InvoiceNumber,
		InvoiceNumberNorm:      normNumber,
		InvoiceDate:            date,
		Currency:               in.Currency,
		Total:                  domain.ToMinorUnits(in.Total),
		TaxTotal:               domain.ToMinorUnits(taxTotal),
		PONumber:               in.PONumber,
		RemitBankAccountMasked: maskedAccount,
		RemitAccountHash:       accountHash,
		RemitName:              in.RemitName,
		PDFHash:                in.PDFHash,
		Terms:                  in.Terms,
		PayloadHash:            payloadHash,
	}
	lines := make([]domain.LineItem, len(in.LineItems))
	for i, l := range in.LineItems {
		lines[i] = domain.LineItem{
			TenantID: tenantID, InvoiceID: in.InvoiceID, LineNo: i + 1,
			SKU: l.SKU, Desc: l.Desc,
			Qty: domain.ToMinorUnits(l.Qty), UnitPrice: domain.ToMinorUnits(l.UnitPrice), Amount: domain.ToMinorUnits(l.Amount),
			GLCode: l.GLCode, CostCenter: l.CostCenter,
		}
	}
	f.lines[invKey(tenantID, in.InvoiceID)] = lines

	if accountHash != nil && *accountHash != "" {
		key := vendorKey(tenantID, in.VendorID) + "|" + *accountHash
		if _, ok := f.remits[key]; !ok {
			f.remits[key] = anomaly.RemitAccount{}
		}
	}
	return nil
}

func (f *fakeStore) GetInvoice(ctx context.Context, tenantID, invoiceID string) (*domain.Invoice, error) {
	inv, ok := f.invoices[invKey(tenantID, invoiceID)]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (f *fakeStore) GetInvoiceLines(ctx context.Context, tenantID, invoiceID string) ([]domain.LineItem, error) {
	return f.lines[invKey(tenantID, invoiceID)], nil
}

func (f *fakeStore) RetrieveCandidates(ctx context.Context, q retrieval.Query) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range f.invoices {
		if inv.TenantID == q.TenantID && inv.VendorID == q.VendorID && inv.InvoiceID != q.InvoiceID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceID < out[j].InvoiceID })
	return out, nil
}

func (f *fakeStore) CountVendorInvoices(ctx context.Context, tenantID, vendorID, excludeInvoiceID string) (int64, error) {
	var n int64
	for _, inv := range f.invoices {
		if inv.TenantID == tenantID && inv.VendorID == vendorID && inv.InvoiceID != excludeInvoiceID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetVendorBaseline(ctx context.Context, tenantID, vendorID string) (*anomaly.Baseline, error) {
	b, ok := f.baselines[vendorKey(tenantID, vendorID)]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) GetRemitAccount(ctx context.Context, tenantID, vendorID, remitHash string) (*anomaly.RemitAccount, error) {
	r, ok := f.remits[vendorKey(tenantID, vendorID)+"|"+remitHash]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStore) GetThreshold(ctx context.Context, tenantID, key string, def float64) (float64, error) {
	if v, ok := f.thresholds[tenantID+"|"+key]; ok {
		return v, nil
	}
	return def, nil
}

func (f *fakeStore) UpsertCase(ctx context.Context, tenantID, invoiceID, decision string) (string, error) {
	if decision != domain.DecisionHold && decision != domain.DecisionReview {
		return "", nil
	}
	id := f.cases[invKey(tenantID, invoiceID)]
	if id == "" {
		id = "case_test"
		f.cases[invKey(tenantID, invoiceID)] = id
	}
	return id, nil
}

func (f *fakeStore) PersistDecision(ctx context.Context, tenantID, invoiceID string, score float64, decision string, reasons []string, top []domain.MatchResult) error {
	f.decisions = append(f.decisions, decisionRecord{invoiceID: invoiceID, score: score, decision: decision, reasons: reasons, top: top})
	return nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, tenantID, actor, action, entity, entityID string, payload map[string]any) error {
	f.audits = append(f.audits, auditRecord{tenantID: tenantID, actor: actor, action: action, entity: entity, entityID: entityID, payload: payload})
	return nil
}

type fakeLimiter struct {
	enabled bool
	allow   bool
}

func (l *fakeLimiter) Enabled() bool { return l.enabled }

func (l *fakeLimiter) AllowScoreInvoice(ctx context.Context, tenantID string) (*ratelimit.RateLimitResult, error) {
	return &ratelimit.RateLimitResult{Allowed: l.allow}, nil
}

func testConfig() config.Config {
	return config.Config{HoldThresholdDefault: 80, ReviewThresholdDefault: 40}
}

func sampleInvoice(id, invnum string, total float64) domain.InvoiceIn {
	return domain.InvoiceIn{
		InvoiceID:     id,
		VendorID:      "V1",
		VendorName:    "Acme Paper",
		InvoiceNumber: invnum,
		InvoiceDate:   "2024-01-15",
		Currency:      "USD",
		Total:         total,
		LineItems: []domain.LineItemIn{
			{Desc: "paper a4", Qty: 10, UnitPrice: 10, Amount: 100},
		},
	}
}

func TestScoreInvoice_RejectsEmptyLineItems(t *testing.T) {
	store := newFakeStore()
	o := New(store, &fakeLimiter{enabled: false}, nil, testConfig(), zap.NewNop())

	in := sampleInvoice("I1", "INV-000123", 100)
	in.LineItems = nil

	_, err := o.ScoreInvoice(context.Background(), "t1", in)
	if err != domain.ErrLineItemsRequired {
		t.Fatalf("expected ErrLineItemsRequired, got %v", err)
	}
}

func TestScoreInvoice_RateLimited(t *testing.T) {
	store := newFakeStore()
	o := New(store, &fakeLimiter{enabled: true, allow: false}, nil, testConfig(), zap.NewNop())

	_, err := o.ScoreInvoice(context.Background(), "t1", sampleInvoice("I1", "INV-000123", 100))
	if err != domain.ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestScoreInvoice_IdenticalResubmissionHolds(t *testing.T) {
	store := newFakeStore()
	o := New(store, &fakeLimiter{enabled: false}, nil, testConfig(), zap.NewNop())
	ctx := context.Background()

	in := sampleInvoice("I1", "INV-000123", 100)
	if _, err := o.ScoreInvoice(ctx, "t1", in); err != nil {
		t.Fatalf("first submission: %v", err)
	}

	resp, err := o.ScoreInvoice(ctx, "t1", sampleInvoice("I2", "INV-000123", 100))
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}

	if resp.Decision != domain.DecisionHold {
		t.Fatalf("expected HOLD, got %s (score=%v reasons=%v)", resp.Decision, resp.RiskScore, resp.ReasonCodes)
	}
	found := false
	for _, r := range resp.ReasonCodes {
		if r == domain.ReasonExactInvnum {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected EXACT_INVNUM in reason codes, got %v", resp.ReasonCodes)
	}
	if len(resp.TopMatches) == 0 || resp.TopMatches[0].InvoiceID != "I1" {
		t.Fatalf("expected top match I1, got %v", resp.TopMatches)
	}

	if len(store.decisions) != 2 {
		t.Fatalf("expected 2 decision rows, got %d", len(store.decisions))
	}
	if store.cases[invKey("t1", "I2")] == "" {
		t.Fatalf("expected a case opened for the held invoice")
	}
	if len(store.audits) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(store.audits))
	}
}

func TestScoreInvoice_BankChangeForcesHold(t *testing.T) {
	store := newFakeStore()
	iban := "DE89370400440532013000"
	store.baselines[vendorKey("t1", "V1")] = anomaly.Baseline{MeanTotal: 100, StdTotal: 10, SampleCount: 50}

	o := New(store, &fakeLimiter{enabled: false}, nil, testConfig(), zap.NewNop())

	in := sampleInvoice("I1", "INV-000999", 100)
	in.RemitBankIBANOrAccount = &iban

	resp, err := o.ScoreInvoice(context.Background(), "t1", in)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if resp.RiskScore < 80 {
		t.Fatalf("expected score >= 80 on bank change, got %v", resp.RiskScore)
	}
	if resp.Decision != domain.DecisionHold {
		t.Fatalf("expected HOLD, got %s", resp.Decision)
	}
	hasBankChange := false
	for _, r := range resp.ReasonCodes {
		if r == domain.ReasonBankChange {
			hasBankChange = true
		}
	}
	if !hasBankChange {
		t.Fatalf("expected BANK_CHANGE in reasons, got %v", resp.ReasonCodes)
	}
}
