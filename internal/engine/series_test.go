package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/health-correlation-server/internal/database"
	"github.com/smukkama/health-correlation-server/internal/protocol"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func record(dataType string, d int, value float64) database.MetricRecord {
	return database.MetricRecord{
		UserID:   1,
		DataType: dataType,
		Date:     day(d),
		Value:    value,
	}
}

func TestReconstruct_JoinsByDate(t *testing.T) {
	records := []database.MetricRecord{
		record("avg_heartbeat", 2, 72),
		record("calories_consumed", 1, 2000),
		record("avg_heartbeat", 1, 70),
		record("calories_consumed", 3, 1900),
	}

	series, err := Reconstruct(records, 1, protocol.DataTypeAvgHeartbeat, protocol.DataTypeCaloriesConsumed)
	require.NoError(t, err)
	require.Len(t, series, 3)

	// Sorted ascending by date
	assert.True(t, series[0].Date.Equal(day(1)))
	assert.True(t, series[1].Date.Equal(day(2)))
	assert.True(t, series[2].Date.Equal(day(3)))

	// Day 1 has both sides
	assert.True(t, series[0].HasX)
	assert.True(t, series[0].HasY)
	assert.Equal(t, 70.0, series[0].X)
	assert.Equal(t, 2000.0, series[0].Y)

	// Day 2 has only x, day 3 only y
	assert.True(t, series[1].HasX)
	assert.False(t, series[1].HasY)
	assert.False(t, series[2].HasX)
	assert.True(t, series[2].HasY)
}

func TestReconstruct_MaxTieBreak(t *testing.T) {
	// Duplicate rows for the same (date, type) should not exist, but the
	// reconstruction is defensive: the maximum value wins.
	records := []database.MetricRecord{
		record("avg_heartbeat", 1, 70),
		record("avg_heartbeat", 1, 75),
		record("avg_heartbeat", 1, 68),
		record("calories_consumed", 1, 2000),
	}

	series, err := Reconstruct(records, 1, protocol.DataTypeAvgHeartbeat, protocol.DataTypeCaloriesConsumed)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 75.0, series[0].X)
}

func TestReconstruct_NoRecords(t *testing.T) {
	_, err := Reconstruct(nil, 1, protocol.DataTypeAvgHeartbeat, protocol.DataTypeCaloriesConsumed)

	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, int64(1), noData.UserID)
}

func TestReconstruct_OneColumnMissing(t *testing.T) {
	records := []database.MetricRecord{
		record("avg_heartbeat", 1, 70),
		record("avg_heartbeat", 2, 72),
	}

	_, err := Reconstruct(records, 1, protocol.DataTypeAvgHeartbeat, protocol.DataTypeCaloriesConsumed)

	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
}

func TestReconstruct_IgnoresOtherTypes(t *testing.T) {
	records := []database.MetricRecord{
		record("avg_heartbeat", 1, 70),
		record("calories_consumed", 1, 2000),
		record("sleep_hours", 1, 8),
	}

	series, err := Reconstruct(records, 1, protocol.DataTypeAvgHeartbeat, protocol.DataTypeCaloriesConsumed)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 70.0, series[0].X)
	assert.Equal(t, 2000.0, series[0].Y)
}
