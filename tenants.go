package recur

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/types"
)

// AddTenant registers caller as a tenant and returns the derived tenant ID.
// Each account may register once.
func (e *Engine) AddTenant(ctx context.Context, caller, email string) (string, error) {
	if caller == "" {
		return "", ValidationError{Field: "caller", Message: "must not be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.store.GetTenant(ctx, caller)
	switch {
	case err == nil:
		return "", ErrDuplicateTenant
	case !errors.Is(err, ErrTenantNotFound):
		return "", err
	}

	step, err := e.steps.CurrentStep(ctx)
	if err != nil {
		return "", fmt.Errorf("recur: read step: %w", err)
	}

	t := &tenant.Tenant{
		Entity:    types.NewEntity(),
		AccountID: caller,
		Email:     email,
		TenantID:  id.Derive(caller, step),
	}
	if err := e.store.CreateTenant(ctx, t); err != nil {
		return "", err
	}

	e.logger.Info("tenant added", "account", caller, "tenant_id", t.TenantID)
	e.plugins.EmitTenantAdded(ctx, t)

	return t.TenantID, nil
}

// LookupTenant returns the tenant registered for account.
func (e *Engine) LookupTenant(ctx context.Context, account string) (*tenant.Tenant, error) {
	return e.store.GetTenant(ctx, account)
}

// GetEmailForAccount returns the email the tenant registered with.
func (e *Engine) GetEmailForAccount(ctx context.Context, account string) (string, error) {
	t, err := e.store.GetTenant(ctx, account)
	if err != nil {
		return "", err
	}
	return t.Email, nil
}

// GetTenantIDForAccount returns the tenant ID derived at registration.
func (e *Engine) GetTenantIDForAccount(ctx context.Context, account string) (string, error) {
	t, err := e.store.GetTenant(ctx, account)
	if err != nil {
		return "", err
	}
	return t.TenantID, nil
}
