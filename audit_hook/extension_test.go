package audithook_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur"
	audithook "github.com/xraph/recur/audit_hook"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/types"
)

type capture struct {
	events []*audithook.AuditEvent
}

func (c *capture) Record(_ context.Context, evt *audithook.AuditEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capture) actions() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

func newEngine(t *testing.T, ext *audithook.Extension) *recur.Engine {
	t.Helper()
	e := recur.New(memory.New(),
		recur.WithTrustedInvoker("cron.near"),
		recur.WithHost(host.NewCustody(host.WithFunds("alice", types.Whole(10)))),
		recur.WithPlugin(ext),
	)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestLifecycleIsAudited(t *testing.T) {
	rec := &capture{}
	e := newEngine(t, audithook.New(rec))
	ctx := context.Background()

	_, err := e.AddTenant(ctx, "alice", "a@x")
	require.NoError(t, err)
	scheduleID, err := e.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(1),
		Amount:           types.NewAmount(1),
		RecipientAccount: "bob",
		Deposit:          types.Whole(2),
	})
	require.NoError(t, err)

	_, err = e.TriggerTenantExecutable(ctx, "mallory", scheduleID)
	require.ErrorIs(t, err, recur.ErrUnauthorized)
	_, err = e.TriggerTenantExecutable(ctx, "cron.near", scheduleID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		audithook.ActionTenantAdded,
		audithook.ActionScheduleCreated,
		audithook.ActionTriggerRejected,
		audithook.ActionScheduleTriggered,
		audithook.ActionScheduleExhausted,
	}, rec.actions())

	created := rec.events[1]
	assert.Equal(t, scheduleID, created.ResourceID)
	assert.Equal(t, audithook.CategoryPayment, created.Category)
	assert.Equal(t, types.Whole(2).String(), created.Metadata["deposit"])

	rejected := rec.events[2]
	assert.Equal(t, audithook.OutcomeFailure, rejected.Outcome)
	assert.Equal(t, audithook.SeverityCritical, rejected.Severity)
	assert.Equal(t, "mallory", rejected.Metadata["caller"])
	assert.NotEmpty(t, rejected.Reason)
}

func TestCancelIsAudited(t *testing.T) {
	rec := &capture{}
	e := newEngine(t, audithook.New(rec, audithook.WithEnabledActions(audithook.ActionScheduleCanceled)))
	ctx := context.Background()

	_, err := e.AddTenant(ctx, "alice", "")
	require.NoError(t, err)
	scheduleID, err := e.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(4),
		Amount:           types.NewAmount(1),
		RecipientAccount: "bob",
		Deposit:          types.Whole(4),
	})
	require.NoError(t, err)
	require.NoError(t, e.CancelExecutableEarly(ctx, "alice", scheduleID))

	require.Len(t, rec.events, 1)
	evt := rec.events[0]
	assert.Equal(t, audithook.ActionScheduleCanceled, evt.Action)
	assert.Equal(t, "4", evt.Metadata["remaining"])
	assert.Equal(t, "alice", evt.Metadata["caller"])
}

func TestDisabledActions(t *testing.T) {
	rec := &capture{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionTenantAdded))
	e := newEngine(t, ext)

	_, err := e.AddTenant(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Empty(t, rec.events)

	require.NoError(t, ext.OnTriggerRejected(context.Background(), "alice_1", "x",
		fmt.Errorf("wrap: %w", recur.ErrInsufficientContractBalance)))
	require.Len(t, rec.events, 1)
	assert.Equal(t, audithook.SeverityWarning, rec.events[0].Severity)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	e := newEngine(t, ext)

	_, err := e.AddTenant(context.Background(), "alice", "")
	require.NoError(t, err)
}
