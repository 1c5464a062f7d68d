// Package memory provides an in-memory store.Store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Tenant storage, keyed by account
	tenants map[string]*tenant.Tenant

	// Schedule storage, keyed by schedule ID
	schedules map[string]*schedule.Schedule

	closed bool
}

func New() *Store {
	return &Store{
		tenants:   make(map[string]*tenant.Tenant),
		schedules: make(map[string]*schedule.Schedule),
	}
}

// Tenant Store implementation
func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[t.AccountID]; exists {
		return recur.ErrDuplicateTenant
	}
	cp := *t
	s.tenants[t.AccountID] = &cp
	return nil
}

func (s *Store) GetTenant(_ context.Context, accountID string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tenants[accountID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, recur.ErrTenantNotFound
}

// Schedule Store implementation
func (s *Store) CreateSchedule(_ context.Context, sc *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[sc.ID]; exists {
		return recur.ErrIdentifierCollision
	}
	s.schedules[sc.ID] = sc.Clone()
	return nil
}

func (s *Store) GetSchedule(_ context.Context, scheduleID string) (*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sc, ok := s.schedules[scheduleID]; ok {
		return sc.Clone(), nil
	}
	return nil, recur.ErrScheduleNotFound
}

func (s *Store) DecrementSchedule(_ context.Context, scheduleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.schedules[scheduleID]
	if !ok {
		return false, recur.ErrScheduleNotFound
	}

	next, err := sc.RemainingCount.Dec()
	if err != nil {
		return false, err
	}
	if next.IsZero() {
		delete(s.schedules, scheduleID)
		return false, nil
	}

	sc.RemainingCount = next
	sc.Touch()
	return true, nil
}

func (s *Store) DeleteSchedule(_ context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[scheduleID]; !ok {
		return recur.ErrScheduleNotFound
	}
	delete(s.schedules, scheduleID)
	return nil
}

func (s *Store) RestoreSchedule(_ context.Context, sc *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[sc.ID] = sc.Clone()
	return nil
}

func (s *Store) ListSchedules(_ context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*schedule.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.TenantID != tenantID {
			continue
		}
		if opts.Recipient != "" && sc.RecipientAccount != opts.Recipient {
			continue
		}
		result = append(result, sc.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	// Apply limit/offset
	start := min(max(opts.Offset, 0), len(result))
	end := len(result)
	if opts.Limit > 0 && opts.Limit < end-start {
		end = start + opts.Limit
	}

	return result[start:end], nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return recur.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
