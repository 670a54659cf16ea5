// Package service implements the scoring orchestrator: the single entry
// point that normalizes a submitted invoice, persists it, retrieves
// candidates, extracts features, predicts duplicate/anomaly probabilities,
// fuses a risk score, and records the decision.
package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/ratelimit"
	"github.com/smallbiznis/sieve/internal/sieve/anomaly"
	"github.com/smallbiznis/sieve/internal/sieve/domain"
	"github.com/smallbiznis/sieve/internal/sieve/dupmodel"
	"github.com/smallbiznis/sieve/internal/sieve/feature"
	"github.com/smallbiznis/sieve/internal/sieve/fuser"
	"github.com/smallbiznis/sieve/internal/sieve/normalize"
	"github.com/smallbiznis/sieve/internal/sieve/retrieval"
	"github.com/smallbiznis/sieve/internal/sieve/rules"
	"github.com/smallbiznis/sieve/internal/sieve/search"
	"github.com/smallbiznis/sieve/pkg/tenantctx"
)

const (
	defaultCandidateConcurrency = 8
	defaultActor                = "system"
	thresholdKeyHold            = "T_hold"
	thresholdKeyReview          = "T_review"
)

// Store is the persistence port the orchestrator depends on. The
// production implementation is *repository.Repository; tests supply a
// fake.
type Store interface {
	anomaly.Store

	PersistInvoice(ctx context.Context, tenantID string, in domain.InvoiceIn, normNumber string, maskedAccount, accountHash *string, payloadHash string, rawJSON datatypes.JSONMap) error
	GetInvoice(ctx context.Context, tenantID, invoiceID string) (*domain.Invoice, error)
	GetInvoiceLines(ctx context.Context, tenantID, invoiceID string) ([]domain.LineItem, error)
	RetrieveCandidates(ctx context.Context, q retrieval.Query) ([]domain.Invoice, error)
	GetThreshold(ctx context.Context, tenantID, key string, def float64) (float64, error)
	UpsertCase(ctx context.Context, tenantID, invoiceID, decision string) (string, error)
	PersistDecision(ctx context.Context, tenantID, invoiceID string, score float64, decision string, reasons []string, top []domain.MatchResult) error
	AppendAudit(ctx context.Context, tenantID, actor, action, entity, entityID string, payload map[string]any) error
}

// Limiter is the rate-limiting port guarding ScoreInvoice. The production
// implementation is *ratelimit.ScoreInvoiceLimiter, which is nil-safe (a
// nil *ScoreInvoiceLimiter behaves as disabled).
type Limiter interface {
	Enabled() bool
	AllowScoreInvoice(ctx context.Context, tenantID string) (*ratelimit.RateLimitResult, error)
}

// Orchestrator wires every sieve package into the ScoreInvoice pipeline.
type Orchestrator struct {
	store   Store
	limiter Limiter
	indexer *search.Indexer
	cfg     config.Config
	log     *zap.Logger

	concurrency int
}

func New(store Store, limiter Limiter, indexer *search.Indexer, cfg config.Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:       store,
		limiter:     limiter,
		indexer:     indexer,
		cfg:         cfg,
		log:         log.Named("sieve.service"),
		concurrency: defaultCandidateConcurrency,
	}
}

// ScoreInvoice implements the 11-step pipeline described by the scoring
// specification: normalize, persist, retrieve candidates, extract
// features, predict, fuse, decide, record.
func (o *Orchestrator) ScoreInvoice(ctx context.Context, tenantID string, in domain.InvoiceIn) (*domain.ScoreResponse, error) {
	if len(in.LineItems) == 0 {
		return nil, domain.ErrLineItemsRequired
	}

	if o.limiter != nil && o.limiter.Enabled() {
		result, err := o.limiter.AllowScoreInvoice(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if result != nil && !result.Allowed {
			return nil, domain.ErrRateLimited
		}
	}

	if _, err := in.ParsedDate(); err != nil {
		return nil, domain.ErrInvalidInvoiceDate
	}

	// 1. Normalize header and compute the payload hash.
	normNumber := normalize.InvnumNorm(in.InvoiceNumber)
	maskedAccount := normalize.MaskAccountLast4(in.RemitBankIBANOrAccount)
	accountHash := normalize.HashAccount(in.RemitBankIBANOrAccount)
	payloadHash := hashPayload(in)
	rawJSON, err := toJSONMap(in)
	if err != nil {
		return nil, err
	}

	// 2. Persist invoice + lines + vendor + remit in one transaction.
	if err := o.store.PersistInvoice(ctx, tenantID, in, normNumber, maskedAccount, accountHash, payloadHash, rawJSON); err != nil {
		return nil, err
	}

	// 3. Re-read the persisted invoice and lines: single source of truth.
	invoice, err := o.store.GetInvoice(ctx, tenantID, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	baseLines, err := o.store.GetInvoiceLines(ctx, tenantID, in.InvoiceID)
	if err != nil {
		return nil, err
	}

	// Best-effort search indexing, outside any transaction.
	o.indexer.Index(ctx, search.Document{
		TenantID:  tenantID,
		VendorID:  invoice.VendorID,
		InvoiceID: invoice.InvoiceID,
		TextBlob:  normalize.TextBlob(invoice.VendorName, invoice.PONumber, invoice.Terms, in.LineItems),
	})

	// 4-5. Retrieve candidates, extract features per candidate, rank, keep
	// top 3.
	top, byID, err := o.rankCandidates(ctx, tenantID, invoice, baseLines)
	if err != nil {
		return nil, err
	}

	dupProb := 0.0
	textDupProb := 0.0
	if len(top) > 0 {
		dupProb = top[0].Similarity
		for _, m := range top {
			if v := m.Features["text_cosine"]; v > textDupProb {
				textDupProb = v
			}
		}
	}

	// 6. Anomaly scorer.
	anomProb, anomReasons, err := anomaly.Score(ctx, o.store, anomaly.Input{
		TenantID:         tenantID,
		VendorID:         invoice.VendorID,
		InvoiceID:        invoice.InvoiceID,
		Total:            invoice.TotalDecimal(),
		RemitAccountHash: invoice.RemitAccountHash,
	})
	if err != nil {
		return nil, err
	}
	bankChange := containsReason(anomReasons, domain.ReasonBankChange)

	// 7. Fuse the score.
	score := fuser.FuseScores(dupProb, anomProb, bankChange, textDupProb)

	// 8. Build reason codes: rules on the top candidate (already folds in
	// BANK_CHANGE via ctx.BankChange), then anomaly reasons, de-duplicated
	// in first-seen order.
	var topReasons []string
	if len(top) > 0 {
		if cand, ok := byID[top[0].InvoiceID]; ok {
			topReasons = rules.Apply(rules.Context{
				Header:     headerPair(invoice, &cand),
				BankChange: bankChange,
			})
		}
	} else if bankChange {
		topReasons = []string{domain.ReasonBankChange}
	}
	reasons := dedupe(append(append([]string{}, topReasons...), anomReasons...))

	// 9. Load per-tenant thresholds and decide.
	holdThreshold, err := o.store.GetThreshold(ctx, tenantID, thresholdKeyHold, o.cfg.HoldThresholdDefault)
	if err != nil {
		return nil, err
	}
	reviewThreshold, err := o.store.GetThreshold(ctx, tenantID, thresholdKeyReview, o.cfg.ReviewThresholdDefault)
	if err != nil {
		return nil, err
	}
	decision, err := fuser.Decide(score, reviewThreshold, holdThreshold)
	if err != nil {
		return nil, err
	}

	// 10. Case management, decision record, audit log.
	if _, err := o.store.UpsertCase(ctx, tenantID, invoice.InvoiceID, decision); err != nil {
		return nil, err
	}
	if err := o.store.PersistDecision(ctx, tenantID, invoice.InvoiceID, score, decision, reasons, top); err != nil {
		return nil, err
	}
	actor := defaultActor
	if subject, ok := tenantctx.Subject(ctx); ok && subject != "" {
		actor = subject
	}
	if err := o.store.AppendAudit(ctx, tenantID, actor, "score", "invoice", invoice.InvoiceID, map[string]any{
		"risk_score": score,
		"decision":   decision,
	}); err != nil {
		return nil, err
	}

	// 11. Return the response.
	return &domain.ScoreResponse{
		RiskScore:    round2(score),
		Decision:     decision,
		ReasonCodes:  reasons,
		TopMatches:   top,
		Explanations: explanationsOf(top),
	}, nil
}

// rankCandidates retrieves blocking-based candidates, extracts features for
// each with a bounded worker pool, and returns the top 3 by similarity
// alongside a lookup of the full candidate invoice rows (keyed by id, for
// rule evaluation against the winner).
func (o *Orchestrator) rankCandidates(ctx context.Context, tenantID string, invoice *domain.Invoice, baseLines []domain.LineItem) ([]domain.MatchResult, map[string]domain.Invoice, error) {
	candidates, err := o.store.RetrieveCandidates(ctx, retrieval.Query{
		TenantID:          tenantID,
		VendorID:          invoice.VendorID,
		InvoiceID:         invoice.InvoiceID,
		Total:             invoice.Total,
		InvoiceDate:       invoice.InvoiceDate,
		PONumber:          invoice.PONumber,
		InvoiceNumberNorm: invoice.InvoiceNumberNorm,
		RemitAccountHash:  invoice.RemitAccountHash,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	byID := make(map[string]domain.Invoice, len(candidates))
	for _, c := range candidates {
		byID[c.InvoiceID] = c
	}

	aHeader := headerInputOf(invoice)
	aLines := lineNormsOf(baseLines)

	results := make([]domain.MatchResult, len(candidates))
	model := dupmodel.Load(o.cfg.DupModelPath)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			candLines, err := o.store.GetInvoiceLines(gctx, tenantID, cand.InvoiceID)
			if err != nil {
				return err
			}
			bHeader := headerInputOf(&cand)
			bLines := lineNormsOf(candLines)
			feats := feature.Extract(aHeader, bHeader, aLines, bLines)
			results[i] = domain.MatchResult{
				InvoiceID:  cand.InvoiceID,
				Similarity: dupmodel.Predict(model, feats),
				Features:   feats.Map(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > 3 {
		results = results[:3]
	}
	return results, byID, nil
}

func headerInputOf(inv *domain.Invoice) feature.HeaderInput {
	return feature.HeaderInput{
		Total:             inv.TotalDecimal(),
		InvoiceDateUnix:   inv.InvoiceDate.Unix(),
		PONumber:          inv.PONumber,
		Currency:          inv.Currency,
		TaxTotal:          inv.TaxTotalDecimal(),
		RemitAccountHash:  inv.RemitAccountHash,
		RemitName:         inv.RemitName,
		InvoiceNumberNorm: inv.InvoiceNumberNorm,
	}
}

func lineNormsOf(lines []domain.LineItem) []feature.LineNorm {
	out := make([]feature.LineNorm, len(lines))
	for i, l := range lines {
		out[i] = feature.LineNorm{
			DescNorm:  normalize.DescNorm(l.Desc),
			UnitPrice: l.UnitPriceDecimal(),
			Qty:       l.QtyDecimal(),
			Amount:    l.AmountDecimal(),
		}
	}
	return out
}

func headerPair(base, cand *domain.Invoice) rules.HeaderPair {
	daysDiff := (base.InvoiceDate.Unix() - cand.InvoiceDate.Unix()) / (24 * 60 * 60)
	if daysDiff < 0 {
		daysDiff = -daysDiff
	}
	return rules.HeaderPair{
		InvnumNormA: base.InvoiceNumberNorm,
		InvnumNormB: cand.InvoiceNumberNorm,
		PONumberA:   base.PONumber,
		PONumberB:   cand.PONumber,
		TotalA:      base.TotalDecimal(),
		TotalB:      cand.TotalDecimal(),
		DaysDiff:    int(daysDiff),
		PDFHashA:    base.PDFHash,
		PDFHashB:    cand.PDFHash,
	}
}

func containsReason(reasons []string, target string) bool {
	for _, r := range reasons {
		if r == target {
			return true
		}
	}
	return false
}

func dedupe(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func explanationsOf(top []domain.MatchResult) []domain.Explanation {
	if len(top) == 0 {
		return []domain.Explanation{}
	}
	feats := top[0].Features
	out := make([]domain.Explanation, 0, len(domain.FeatureOrder))
	for _, name := range domain.FeatureOrder {
		out = append(out, domain.Explanation{Feature: name, Value: feats[name]})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// hashPayload builds the stable payload hash over the submitted invoice's
// scalar fields and a deterministic encoding of its line items.
func hashPayload(in domain.InvoiceIn) string {
	linesJSON, _ := json.Marshal(in.LineItems)
	fields := map[string]string{
		"invoice_id":     in.InvoiceID,
		"vendor_id":      in.VendorID,
		"vendor_name":    in.VendorName,
		"invoice_number": in.InvoiceNumber,
		"invoice_date":   in.InvoiceDate,
		"currency":       in.Currency,
		"total":          strconv.FormatFloat(in.Total, 'f', -1, 64),
		"po_number":      strOrEmpty(in.PONumber),
		"remit_account":  strOrEmpty(in.RemitBankIBANOrAccount),
		"remit_name":     strOrEmpty(in.RemitName),
		"pdf_hash":       strOrEmpty(in.PDFHash),
		"terms":          strOrEmpty(in.Terms),
		"lines":          string(linesJSON),
	}
	if in.TaxTotal != nil {
		fields["tax_total"] = strconv.FormatFloat(*in.TaxTotal, 'f', -1, 64)
	}
	return normalize.PayloadHash(fields)
}

func toJSONMap(in domain.InvoiceIn) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
