// Package store defines the aggregate persistence interface for recur.
package store

import (
	"context"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
)

// Store is the unified storage interface for tenants and schedules.
//
// Tenants and schedules live in separate keyspaces: a tenant account and a
// schedule identifier never shadow each other.
type Store interface {
	// Tenant methods
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, accountID string) (*tenant.Tenant, error)

	// Schedule methods
	CreateSchedule(ctx context.Context, s *schedule.Schedule) error
	GetSchedule(ctx context.Context, scheduleID string) (*schedule.Schedule, error)
	DecrementSchedule(ctx context.Context, scheduleID string) (bool, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
	RestoreSchedule(ctx context.Context, s *schedule.Schedule) error
	ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ tenant.Store   = Store(nil)
	_ schedule.Store = Store(nil)
)
