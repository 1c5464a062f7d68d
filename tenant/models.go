// Package tenant defines the account-holder registration record.
package tenant

import "github.com/xraph/recur/types"

// Tenant is an account holder that may own payment schedules.
// A tenant is created once per account and never mutated or deleted.
type Tenant struct {
	types.Entity
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	TenantID  string `json:"tenant_id"`
}
