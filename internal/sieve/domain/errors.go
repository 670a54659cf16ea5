package domain

import "errors"

// Sentinel errors mapped to HTTP status by internal/httpapi. Feature
// extraction, duplicate modeling, anomaly scoring, and score fusion never
// return these. They come from request validation and rate limiting in the
// orchestrator, fuser.Decide's threshold-ordering check, persistence
// lookups, and auth.
var (
	ErrLineItemsRequired  = errors.New("line_items_required")
	ErrInvalidThresholds  = errors.New("invalid_thresholds")
	ErrInvalidInvoiceDate = errors.New("invalid_invoice_date")
	ErrDecisionNotFound   = errors.New("decision_not_found")
	ErrInvoiceNotFound    = errors.New("invoice_not_found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate_limited")
)
