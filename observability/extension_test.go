package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/observability"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/types"
)

func value(t *testing.T, c observability.Counter) float64 {
	t.Helper()
	collector, ok := c.(prometheus.Collector)
	require.True(t, ok)
	return testutil.ToFloat64(collector)
}

func TestMetricsExtensionCountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	custody := host.NewCustody(host.WithFunds("alice", types.Whole(2)))
	e := recur.New(memory.New(),
		recur.WithTrustedInvoker("cron.near"),
		recur.WithHost(custody),
		recur.WithPlugin(metrics),
	)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	_, err := e.AddTenant(ctx, "alice", "")
	require.NoError(t, err)
	scheduleID, err := e.AddTenantExecutable(ctx, "alice", recur.ScheduleInput{
		Count:            types.NewAmount(2),
		Amount:           types.NewAmount(1),
		RecipientAccount: "bob",
		Deposit:          types.Whole(2),
	})
	require.NoError(t, err)

	_, err = e.TriggerTenantExecutable(ctx, "mallory", scheduleID)
	require.Error(t, err)
	_, err = e.TriggerTenantExecutable(ctx, "cron.near", scheduleID)
	require.NoError(t, err)
	// custody now holds exactly one occurrence, which is not enough
	_, err = e.TriggerTenantExecutable(ctx, "cron.near", scheduleID)
	require.ErrorIs(t, err, recur.ErrInsufficientContractBalance)

	assert.InDelta(t, 1, value(t, metrics.TenantsAdded), 0)
	assert.InDelta(t, 1, value(t, metrics.SchedulesCreated), 0)
	assert.InDelta(t, 1, value(t, metrics.Triggers), 0)
	assert.InDelta(t, 2, value(t, metrics.TriggersRejected), 0)
	assert.InDelta(t, 1, value(t, metrics.TriggersUnauthorized), 0)
	assert.InDelta(t, 1, value(t, metrics.TriggersUnderfunded), 0)
	assert.InDelta(t, 0, value(t, metrics.SchedulesExhausted), 0)

	require.NoError(t, e.CancelExecutableEarly(ctx, "alice", scheduleID))
	assert.InDelta(t, 1, value(t, metrics.SchedulesCanceled), 0)
}

func TestPrometheusFactoryNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	f.Counter("recur.trigger.total").Inc()
	f.Histogram("recur.transfer.amount_units").Observe(3)

	n, err := testutil.GatherAndCount(reg, "recur_trigger_total", "recur_transfer_amount_units")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	a := f.Counter("recur.schedule.created")
	b := f.Counter("recur.schedule.created")
	a.Inc()
	b.Inc()

	assert.InDelta(t, 2, value(t, a), 0)
}
