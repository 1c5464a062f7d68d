package tenant

import "context"

// Store persists tenants keyed by account.
type Store interface {
	// CreateTenant inserts t. It fails with a duplicate error if the account
	// already has a tenant.
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, accountID string) (*Tenant, error)
}
