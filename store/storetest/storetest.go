// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/types"
)

// Run executes the suite. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("TenantRoundTrip", func(t *testing.T) { testTenantRoundTrip(t, newStore(t)) })
	t.Run("DuplicateTenant", func(t *testing.T) { testDuplicateTenant(t, newStore(t)) })
	t.Run("ScheduleRoundTrip", func(t *testing.T) { testScheduleRoundTrip(t, newStore(t)) })
	t.Run("ScheduleCollision", func(t *testing.T) { testScheduleCollision(t, newStore(t)) })
	t.Run("DecrementToExhaustion", func(t *testing.T) { testDecrementToExhaustion(t, newStore(t)) })
	t.Run("DeleteAndRestore", func(t *testing.T) { testDeleteAndRestore(t, newStore(t)) })
	t.Run("ListSchedules", func(t *testing.T) { testListSchedules(t, newStore(t)) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, newStore(t)) })
	t.Run("ListEmptyTenant", func(t *testing.T) { testListEmptyTenant(t, newStore(t)) })
	t.Run("SeparateKeyspaces", func(t *testing.T) { testSeparateKeyspaces(t, newStore(t)) })
	t.Run("ConcurrentDecrement", func(t *testing.T) { testConcurrentDecrement(t, newStore(t)) })
}

// NewSchedule builds a schedule fixture.
func NewSchedule(scheduleID, tenantID string, count uint64) *schedule.Schedule {
	return &schedule.Schedule{
		Entity:              types.NewEntity(),
		ID:                  scheduleID,
		TenantID:            tenantID,
		OwnerAccount:        "alice",
		AmountPerOccurrence: types.Whole(1),
		RemainingCount:      types.NewAmount(count),
		InitialCount:        types.NewAmount(count),
		RecipientAccount:    "bob",
		RecipientEmail:      "bob@example.com",
	}
}

func testTenantRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := &tenant.Tenant{Entity: types.NewEntity(), AccountID: "alice", Email: "a@example.com", TenantID: "alice_0"}
	require.NoError(t, s.CreateTenant(ctx, in))

	got, err := s.GetTenant(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.AccountID)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "alice_0", got.TenantID)

	_, err = s.GetTenant(ctx, "nobody")
	require.ErrorIs(t, err, recur.ErrTenantNotFound)
}

func testDuplicateTenant(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTenant(ctx, &tenant.Tenant{Entity: types.NewEntity(), AccountID: "alice", TenantID: "alice_0"}))
	err := s.CreateTenant(ctx, &tenant.Tenant{Entity: types.NewEntity(), AccountID: "alice", TenantID: "alice_9"})
	require.ErrorIs(t, err, recur.ErrDuplicateTenant)

	got, err := s.GetTenant(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_0", got.TenantID, "duplicate must not overwrite")
}

func testScheduleRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := NewSchedule("alice_1", "alice_0", 3)
	require.NoError(t, s.CreateSchedule(ctx, in))

	got, err := s.GetSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.TenantID, got.TenantID)
	assert.Equal(t, in.OwnerAccount, got.OwnerAccount)
	assert.True(t, in.AmountPerOccurrence.Equal(got.AmountPerOccurrence), "amount %s", got.AmountPerOccurrence)
	assert.Equal(t, "3", got.RemainingCount.String())
	assert.Equal(t, "3", got.InitialCount.String())
	assert.Equal(t, "bob", got.RecipientAccount)
	assert.Equal(t, "bob@example.com", got.RecipientEmail)

	_, err = s.GetSchedule(ctx, "missing_1")
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)
}

func testScheduleCollision(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", 3)))
	err := s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", 9))
	require.ErrorIs(t, err, recur.ErrIdentifierCollision)

	got, err := s.GetSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "3", got.RemainingCount.String())
}

func testDecrementToExhaustion(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", 3)))

	remains, err := s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.True(t, remains)

	got, err := s.GetSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "2", got.RemainingCount.String())

	remains, err = s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.True(t, remains)

	remains, err = s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.False(t, remains)

	_, err = s.GetSchedule(ctx, "alice_1")
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)

	_, err = s.DecrementSchedule(ctx, "alice_1")
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)
}

func testDeleteAndRestore(t *testing.T, s store.Store) {
	ctx := context.Background()
	sc := NewSchedule("alice_1", "alice_0", 1)
	require.NoError(t, s.CreateSchedule(ctx, sc))

	remains, err := s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)
	require.False(t, remains)

	require.NoError(t, s.RestoreSchedule(ctx, sc))
	got, err := s.GetSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.RemainingCount.String())

	require.NoError(t, s.DeleteSchedule(ctx, "alice_1"))
	require.ErrorIs(t, s.DeleteSchedule(ctx, "alice_1"), recur.ErrScheduleNotFound)
}

func testListSchedules(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := range 5 {
		sc := NewSchedule(fmt.Sprintf("alice_%d", i+1), "alice_0", 2)
		if i == 4 {
			sc.RecipientAccount = "carol"
		}
		require.NoError(t, s.CreateSchedule(ctx, sc))
	}
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("dave_1", "dave_0", 2)))

	all, err := s.ListSchedules(ctx, "alice_0", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.ListSchedules(ctx, "alice_0", schedule.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	carol, err := s.ListSchedules(ctx, "alice_0", schedule.ListOpts{Recipient: "carol"})
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Equal(t, "alice_5", carol[0].ID)

	none, err := s.ListSchedules(ctx, "nobody_0", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, s.CreateSchedule(ctx, NewSchedule(fmt.Sprintf("alice_%d", i+1), "alice_0", 1)))
	}

	tests := []struct {
		name string
		opts schedule.ListOpts
		want int
	}{
		{"huge limit with offset", schedule.ListOpts{Limit: math.MaxInt, Offset: 1}, 2},
		{"huge limit", schedule.ListOpts{Limit: math.MaxInt}, 3},
		{"limit past end", schedule.ListOpts{Limit: 10, Offset: 2}, 1},
		{"offset past end", schedule.ListOpts{Limit: 1, Offset: 10}, 0},
		{"huge offset", schedule.ListOpts{Offset: math.MaxInt}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSchedules(ctx, "alice_0", tt.opts)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func testListEmptyTenant(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", 1)))

	got, err := s.ListSchedules(ctx, "", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testSeparateKeyspaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTenant(ctx, &tenant.Tenant{Entity: types.NewEntity(), AccountID: "alice_1", TenantID: "alice_1_0"}))
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", 1)))

	got, err := s.GetTenant(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "alice_1_0", got.TenantID)

	sc, err := s.GetSchedule(ctx, "alice_1")
	require.NoError(t, err)
	assert.Equal(t, "alice_0", sc.TenantID)
}

func testConcurrentDecrement(t *testing.T, s store.Store) {
	ctx := context.Background()
	const count = 20
	require.NoError(t, s.CreateSchedule(ctx, NewSchedule("alice_1", "alice_0", count)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for range count + 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				remains, err := s.DecrementSchedule(ctx, "alice_1")
				if recur.IsRetryable(err) {
					continue
				}
				mu.Lock()
				if err == nil {
					succeeded++
					if !remains {
						exhausted++
					}
				}
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, count, succeeded, "exactly count decrements succeed")
	assert.Equal(t, 1, exhausted)
}
