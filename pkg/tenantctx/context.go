// Package tenantctx carries the authenticated tenant id through a request's
// context so handlers, the orchestrator, and the row-level-security
// session setter all agree on a single source of truth.
package tenantctx

import "context"

type keyType string

const (
	TenantIDKey keyType = "tenant_id"
	SubjectKey  keyType = "auth_subject"
)

// WithTenantID attaches tenantID to ctx.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// TenantID returns the tenant id carried by ctx, if any.
func TenantID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TenantIDKey).(string)
	return id, ok
}

// WithSubject attaches the authenticated subject (for audit actor) to ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// Subject returns the authenticated subject carried by ctx, if any.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}
