package rls

import (
	"gorm.io/gorm"
)

// WithTenant scopes tx to tenantID for the lifetime of the current
// transaction via a transaction-local GUC (set_config with is_local=true,
// the form of SET LOCAL that accepts a bind parameter), so every
// row-level-security policy keyed on app.current_tenant_id sees the same
// value the orchestrator authenticated.
func WithTenant(tx *gorm.DB, tenantID string) error {
	return tx.Exec("SELECT set_config('app.current_tenant_id', ?, true)", tenantID).Error
}
