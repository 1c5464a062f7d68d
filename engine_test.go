package recur_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/transfer"
	"github.com/xraph/recur/types"
)

const trusted = "scheduler.near"

type harness struct {
	engine  *recur.Engine
	store   *memory.Store
	custody *host.Custody
	events  *eventLog
}

func newHarness(t *testing.T, opts ...recur.Option) *harness {
	t.Helper()
	st := memory.New()
	custody := host.NewCustody()
	events := &eventLog{}

	base := []recur.Option{
		recur.WithTrustedInvoker(trusted),
		recur.WithHost(custody),
		recur.WithPlugin(events),
	}
	e := recur.New(st, append(base, opts...)...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })

	return &harness{engine: e, store: st, custody: custody, events: events}
}

// addSchedule registers owner (if needed) and creates a schedule at a fresh step.
func (h *harness) addSchedule(t *testing.T, owner string, count, amount uint64, deposit types.Amount) string {
	t.Helper()
	ctx := context.Background()
	if _, err := h.engine.LookupTenant(ctx, owner); err != nil {
		_, err := h.engine.AddTenant(ctx, owner, owner+"@example.com")
		require.NoError(t, err)
	}
	require.NoError(t, h.custody.Fund(owner, deposit))
	h.custody.Advance(1)
	scheduleID, err := h.engine.AddTenantExecutable(ctx, owner, recur.ScheduleInput{
		Count:            types.NewAmount(count),
		Amount:           types.NewAmount(amount),
		RecipientAccount: "bob.near",
		RecipientEmail:   "bob@example.com",
		Deposit:          deposit,
	})
	require.NoError(t, err)
	return scheduleID
}

type eventLog struct {
	mu       sync.Mutex
	tenants  []string
	created  []string
	triggers []string
	done     []string
	canceled []string
	rejected []error
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) OnTenantAdded(_ context.Context, t *tenant.Tenant) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tenants = append(l.tenants, t.AccountID)
	return nil
}

func (l *eventLog) OnScheduleCreated(_ context.Context, s *schedule.Schedule, _ types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = append(l.created, s.ID)
	return nil
}

func (l *eventLog) OnScheduleTriggered(_ context.Context, s *schedule.Schedule, _ *transfer.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.triggers = append(l.triggers, s.ID+":"+s.RemainingCount.String())
	return nil
}

func (l *eventLog) OnScheduleExhausted(_ context.Context, s *schedule.Schedule) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = append(l.done, s.ID)
	return nil
}

func (l *eventLog) OnScheduleCanceled(_ context.Context, s *schedule.Schedule, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.canceled = append(l.canceled, s.ID)
	return nil
}

func (l *eventLog) OnTriggerRejected(_ context.Context, _, _ string, reason error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejected = append(l.rejected, reason)
	return nil
}

// ──────────────────────────────────────────────────
// Scenarios
// ──────────────────────────────────────────────────

func TestScenarioA_AddTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tenantID, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)
	assert.Equal(t, "alice_0", tenantID)

	email, err := h.engine.GetEmailForAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x", email)

	got, err := h.engine.GetTenantIDForAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_0", got)

	_, err = h.engine.AddTenant(ctx, "alice", "other@x")
	require.ErrorIs(t, err, recur.ErrDuplicateTenant)

	email, err = h.engine.GetEmailForAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x", email, "duplicate registration must not change the tenant")

	assert.Equal(t, []string{"alice"}, h.events.tenants)
}

func TestScenarioB_CreateSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)
	h.custody.SetStep(7)
	require.NoError(t, h.custody.Fund("alice", types.Whole(3)))

	scheduleID, err := h.engine.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(3),
		Amount:           types.NewAmount(1),
		RecipientAccount: "bob",
		RecipientEmail:   "b@x",
		Deposit:          types.Whole(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_7", scheduleID)

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, "alice_0", s.TenantID)
	assert.Equal(t, "alice", s.OwnerAccount)
	assert.Equal(t, "3", s.RemainingCount.String())
	assert.True(t, s.AmountPerOccurrence.Equal(types.Whole(1)))
	assert.Equal(t, "bob", s.RecipientAccount)

	assert.True(t, h.custody.Balance().Equal(types.Whole(3)), "deposit is credited to custody")
	assert.True(t, h.custody.Funds("alice").IsZero(), "deposit is debited from the owner")
	assert.Equal(t, []string{"alice_7"}, h.events.created)
}

func TestScenarioC_TriggerUntilExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 3, 1, types.Whole(3))
	// custody must strictly exceed the amount on the final trigger
	require.NoError(t, h.custody.Credit(types.NewAmount(1)))

	for i, want := range []string{"2", "1", "0"} {
		handle, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
		require.NoError(t, err, "trigger %d", i+1)
		assert.Equal(t, want, handle.Remaining.String())
		assert.True(t, handle.Amount.Equal(types.Whole(1)))
		assert.Equal(t, "bob.near", handle.Recipient)
	}

	_, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)

	assert.Len(t, h.custody.Transfers(), 3)
	assert.Equal(t, "1", h.custody.Balance().String())
	assert.Equal(t, []string{scheduleID}, h.events.done)
	assert.Equal(t, []string{scheduleID + ":2", scheduleID + ":1", scheduleID + ":0"}, h.events.triggers)
}

func TestScenarioD_UntrustedTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 3, 1, types.Whole(3))

	_, err := h.engine.TriggerTenantExecutable(ctx, "mallory", scheduleID)
	require.ErrorIs(t, err, recur.ErrUnauthorized)

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, "3", s.RemainingCount.String())
	assert.Empty(t, h.custody.Transfers())
	require.Len(t, h.events.rejected, 1)
	assert.ErrorIs(t, h.events.rejected[0], recur.ErrUnauthorized)
}

func TestScenarioE_InsufficientDeposit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)

	_, err = h.engine.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(5),
		Amount:           types.NewAmount(2),
		RecipientAccount: "bob",
		Deposit:          types.Whole(9),
	})
	require.ErrorIs(t, err, recur.ErrInsufficientDeposit)

	list, err := h.engine.ListSchedules(ctx, "alice_0", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, h.custody.Balance().IsZero())
}

func TestUnfundedDepositIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)
	require.NoError(t, h.custody.Fund("alice", types.Whole(1)))
	h.custody.SetStep(3)

	_, err = h.engine.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(2),
		Amount:           types.NewAmount(1),
		RecipientAccount: "bob",
		Deposit:          types.Whole(2),
	})
	require.ErrorIs(t, err, recur.ErrInsufficientDeposit)
	require.ErrorIs(t, err, host.ErrInsufficientFunds)

	_, err = h.engine.GetSchedule(ctx, "alice_3")
	require.ErrorIs(t, err, recur.ErrScheduleNotFound, "schedule must be rolled back")
	assert.True(t, h.custody.Balance().IsZero(), "claimed deposit must not create value")
	assert.True(t, h.custody.Funds("alice").Equal(types.Whole(1)))
	assert.Empty(t, h.events.created)

	_, err = h.engine.TriggerTenantExecutable(ctx, trusted, "alice_3")
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)
	assert.Empty(t, h.custody.Transfers())
}

// ──────────────────────────────────────────────────
// Properties
// ──────────────────────────────────────────────────

func TestTenantIDsUniqueAcrossAccounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	seen := map[string]string{}
	for i := range 20 {
		account := fmt.Sprintf("user-%02d", i)
		tenantID, err := h.engine.AddTenant(ctx, account, "")
		require.NoError(t, err)
		if prev, dup := seen[tenantID]; dup {
			t.Fatalf("tenant id %q issued to both %s and %s", tenantID, prev, account)
		}
		seen[tenantID] = account
	}
}

func TestValidateDeposit(t *testing.T) {
	large := types.MustParseAmount("1000000000000000000000000000000000000") // 10^36

	for _, count := range []uint64{1, 1000} {
		for _, amount := range []types.Amount{types.Zero, types.NewAmount(1), large} {
			name := fmt.Sprintf("count=%d/amount=%s", count, amount)
			t.Run(name, func(t *testing.T) {
				c := types.NewAmount(count)
				required, err := amount.CheckedMul(c)
				if err != nil {
					_, verr := recur.ValidateDeposit(types.MaxAmount, amount, c)
					require.ErrorIs(t, verr, recur.ErrArithmeticOverflow)
					return
				}

				got, err := recur.ValidateDeposit(required, amount, c)
				require.NoError(t, err)
				assert.True(t, got.Equal(required))

				if !required.IsZero() {
					short, _ := required.CheckedSub(types.NewAmount(1))
					_, err = recur.ValidateDeposit(short, amount, c)
					require.ErrorIs(t, err, recur.ErrInsufficientDeposit)
				}
			})
		}
	}
}

func TestExactlyNTriggers(t *testing.T) {
	for _, n := range []uint64{1, 2, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			scheduleID := h.addSchedule(t, "alice", n, 1, types.Whole(n+1))

			for i := uint64(0); i < n; i++ {
				_, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
				require.NoError(t, err)
			}
			_, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
			require.ErrorIs(t, err, recur.ErrScheduleNotFound)
			assert.Len(t, h.custody.Transfers(), int(n))
		})
	}
}

func TestUntrustedCallersNeverTrigger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 2, 1, types.Whole(3))

	for _, caller := range []string{"", "alice", "bob.near", "scheduler", "SCHEDULER.NEAR", trusted + " "} {
		_, err := h.engine.TriggerTenantExecutable(ctx, caller, scheduleID)
		require.ErrorIs(t, err, recur.ErrUnauthorized, "caller %q", caller)
	}

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, "2", s.RemainingCount.String())
}

func TestNoTrustedInvokerRejectsEverything(t *testing.T) {
	st := memory.New()
	e := recur.New(st, recur.WithHost(host.NewCustody()))
	require.ErrorIs(t, recur.Authorize("", ""), recur.ErrUnauthorized)

	_, err := e.TriggerTenantExecutable(context.Background(), "", "alice_0")
	require.ErrorIs(t, err, recur.ErrUnauthorized)
}

func TestInsufficientContractBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 2, 1, types.Whole(2))

	// balance == amount is not enough
	_, err := h.custody.RequestTransfer(ctx, transfer.NewRequest("drain", "x", types.Whole(1)))
	require.NoError(t, err)
	require.True(t, h.custody.Balance().Equal(types.Whole(1)))

	_, err = h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.ErrorIs(t, err, recur.ErrInsufficientContractBalance)

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, "2", s.RemainingCount.String())
	assert.Len(t, h.custody.Transfers(), 1)
}

// ──────────────────────────────────────────────────
// Schedule creation
// ──────────────────────────────────────────────────

func TestAddTenantExecutableValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller string
		in     recur.ScheduleInput
		want   error
	}{
		{
			name:   "unregistered tenant",
			caller: "carol",
			in:     recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1)},
			want:   recur.ErrTenantNotFound,
		},
		{
			name:   "invalid recipient",
			caller: "alice",
			in:     recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "Not Valid!", Deposit: types.Whole(1)},
			want:   recur.ErrInvalidRecipient,
		},
		{
			name:   "zero count",
			caller: "alice",
			in:     recur.ScheduleInput{Count: types.Zero, Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1)},
			want:   recur.ErrInvalidInput,
		},
		{
			name:   "scaling overflow",
			caller: "alice",
			in:     recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.MustParseAmount("1000000000000000"), RecipientAccount: "bob", Deposit: types.MaxAmount},
			want:   recur.ErrArithmeticOverflow,
		},
		{
			name:   "empty caller",
			caller: "",
			in:     recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1)},
			want:   recur.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.AddTenantExecutable(ctx, tt.caller, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}

	list, err := h.engine.ListSchedules(ctx, "alice_0", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIdentifierCollisionFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)

	in := recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1)}
	h.custody.SetStep(10)
	require.NoError(t, h.custody.Fund("alice", types.Whole(10)))
	first, err := h.engine.AddTenantExecutable(ctx, "alice", in)
	require.NoError(t, err)

	in.Count = types.NewAmount(9)
	in.Deposit = types.Whole(9)
	_, err = h.engine.AddTenantExecutable(ctx, "alice", in)
	require.ErrorIs(t, err, recur.ErrIdentifierCollision)
	assert.True(t, recur.IsRetryable(err))

	s, err := h.engine.GetSchedule(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "1", s.RemainingCount.String(), "collision must not overwrite")
	assert.True(t, h.custody.Balance().Equal(types.Whole(1)), "rejected deposit is not credited")
	assert.True(t, h.custody.Funds("alice").Equal(types.Whole(9)), "rejected deposit is not debited")
}

func TestDefaultSequenceAvoidsCollisions(t *testing.T) {
	custody := host.NewCustody()
	e := recur.New(memory.New(),
		recur.WithTrustedInvoker(trusted),
		recur.WithBalanceReader(custody),
		recur.WithTransferRequester(custody),
	)
	ctx := context.Background()
	_, err := e.AddTenant(ctx, "alice", "")
	require.NoError(t, err)

	in := recur.ScheduleInput{Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1)}
	a, err := e.AddTenantExecutable(ctx, "alice", in)
	require.NoError(t, err)
	b, err := e.AddTenantExecutable(ctx, "alice", in)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// ──────────────────────────────────────────────────
// Cancellation
// ──────────────────────────────────────────────────

func TestCancelExecutableEarly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 5, 1, types.Whole(5))

	require.ErrorIs(t, h.engine.CancelExecutableEarly(ctx, "mallory", scheduleID), recur.ErrNotScheduleOwner)

	require.NoError(t, h.engine.CancelExecutableEarly(ctx, "alice", scheduleID))
	_, err := h.engine.GetSchedule(ctx, scheduleID)
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)

	require.ErrorIs(t, h.engine.CancelExecutableEarly(ctx, "alice", scheduleID), recur.ErrScheduleNotFound)

	_, err = h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.ErrorIs(t, err, recur.ErrScheduleNotFound)
	assert.Equal(t, []string{scheduleID}, h.events.canceled)
}

func TestTrustedInvokerMayCancel(t *testing.T) {
	h := newHarness(t)
	scheduleID := h.addSchedule(t, "alice", 2, 1, types.Whole(2))
	require.NoError(t, h.engine.CancelExecutableEarly(context.Background(), trusted, scheduleID))
}

func TestOpenCancellation(t *testing.T) {
	h := newHarness(t, recur.WithOpenCancellation())
	scheduleID := h.addSchedule(t, "alice", 2, 1, types.Whole(2))
	require.NoError(t, h.engine.CancelExecutableEarly(context.Background(), "anyone", scheduleID))
}

// ──────────────────────────────────────────────────
// Compensation and collaborators
// ──────────────────────────────────────────────────

type failingRequester struct{}

func (failingRequester) RequestTransfer(context.Context, transfer.Request) (*transfer.Handle, error) {
	return nil, errors.New("settlement unavailable")
}

func TestTransferFailureRestoresSchedule(t *testing.T) {
	h := newHarness(t, recur.WithTransferRequester(failingRequester{}))
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 1, 1, types.Whole(2))

	_, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.ErrorIs(t, err, recur.ErrTransferFailed)
	assert.True(t, recur.IsRetryable(err))

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err, "exhausting trigger must be rolled back")
	assert.Equal(t, "1", s.RemainingCount.String())
	assert.Empty(t, h.events.done)
}

func TestTriggerWithoutCustody(t *testing.T) {
	st := memory.New()
	e := recur.New(st, recur.WithTrustedInvoker(trusted))
	ctx := context.Background()
	_, err := e.AddTenant(ctx, "alice", "")
	require.NoError(t, err)
	scheduleID, err := e.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count: types.NewAmount(1), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(1),
	})
	require.NoError(t, err)

	_, err = e.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.ErrorIs(t, err, recur.ErrHostNotConfigured)
}

// consumedStore reports every decrement as consuming the last occurrence.
type consumedStore struct {
	*memory.Store
}

func (s consumedStore) DecrementSchedule(ctx context.Context, scheduleID string) (bool, error) {
	if _, err := s.Store.DecrementSchedule(ctx, scheduleID); err != nil {
		return false, err
	}
	return false, nil
}

func TestExhaustionFollowsStoreDecrement(t *testing.T) {
	custody := host.NewCustody(host.WithFunds("alice", types.Whole(3)))
	events := &eventLog{}
	e := recur.New(consumedStore{memory.New()},
		recur.WithTrustedInvoker(trusted),
		recur.WithHost(custody),
		recur.WithPlugin(events),
	)
	ctx := context.Background()
	_, err := e.AddTenant(ctx, "alice", "")
	require.NoError(t, err)
	scheduleID, err := e.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count: types.NewAmount(3), Amount: types.NewAmount(1), RecipientAccount: "bob", Deposit: types.Whole(3),
	})
	require.NoError(t, err)

	_, err = e.TriggerTenantExecutable(ctx, trusted, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, []string{scheduleID}, events.done, "exhaustion is decided by the store result")
}

func TestCustomUnitScale(t *testing.T) {
	h := newHarness(t, recur.WithUnitScale(types.NewAmount(100)))
	ctx := context.Background()
	scheduleID := h.addSchedule(t, "alice", 2, 3, types.NewAmount(601))

	s, err := h.engine.GetSchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, "300", s.AmountPerOccurrence.String())
	assert.Equal(t, "100", h.engine.UnitScale().String())
}

func TestConcurrentTriggersNeverOverIssue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const n = 10
	scheduleID := h.addSchedule(t, "alice", n, 1, types.Whole(n+1))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for range n * 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.TriggerTenantExecutable(ctx, trusted, scheduleID); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n, oks)
	assert.Len(t, h.custody.Transfers(), n)
}

func TestListAccountSchedules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addSchedule(t, "alice", 1, 1, types.Whole(1))
	h.addSchedule(t, "alice", 2, 1, types.Whole(2))
	h.addSchedule(t, "dave", 1, 1, types.Whole(1))

	list, err := h.engine.ListAccountSchedules(ctx, "alice", schedule.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = h.engine.ListAccountSchedules(ctx, "nobody", schedule.ListOpts{})
	require.ErrorIs(t, err, recur.ErrTenantNotFound)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, recur.IsNotFound(recur.ErrScheduleNotFound))
	assert.True(t, recur.IsNotFound(fmt.Errorf("wrap: %w", recur.ErrTenantNotFound)))
	assert.True(t, recur.IsAuthError(recur.ErrNotScheduleOwner))
	assert.True(t, recur.IsFundsError(recur.ErrInsufficientContractBalance))
	assert.True(t, recur.IsRetryable(recur.ErrConcurrentUpdate))
	assert.False(t, recur.IsRetryable(recur.ErrUnauthorized))

	var verr recur.ValidationError
	err := fmt.Errorf("op: %w", recur.ValidationError{Field: "count", Message: "must be at least 1"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "count", verr.Field)
	assert.ErrorIs(t, err, recur.ErrInvalidInput)
}
