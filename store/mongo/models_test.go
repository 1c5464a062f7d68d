package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur/store/storetest"
	"github.com/xraph/recur/types"
)

func TestScheduleModelRoundTrip(t *testing.T) {
	sc := storetest.NewSchedule("alice_1", "alice_0", 3)
	sc.AmountPerOccurrence = types.MaxAmount

	back, err := fromScheduleModel(toScheduleModel(sc))
	require.NoError(t, err)
	assert.True(t, back.AmountPerOccurrence.Equal(types.MaxAmount))
	assert.Equal(t, sc.ID, back.ID)
	assert.Equal(t, sc.TenantID, back.TenantID)
}

func TestScheduleFieldsUseBSONNames(t *testing.T) {
	fields := scheduleFields(toScheduleModel(storetest.NewSchedule("alice_1", "alice_0", 3)))
	assert.Equal(t, "alice_1", fields["_id"])
	assert.Equal(t, "3", fields["remaining_count"])
	assert.Contains(t, fields, "amount_per_occurrence")
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	assert.Contains(t, idx, colTenants)
	assert.Contains(t, idx, colSchedules)
}
