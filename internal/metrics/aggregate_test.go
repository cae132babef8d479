package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/metrics"
)

func TestAggregates(t *testing.T) {
	rows := []metrics.Row{
		{Count: 3, Duration: 90},
		{Count: 1, Duration: 30},
		{Count: 2, Duration: 0},
	}

	t.Run("count returns the number of groups", func(t *testing.T) {
		assert.Equal(t, 3, metrics.Count(rows))
		assert.Equal(t, 0, metrics.Count(nil))
	})

	t.Run("sum defaults to the count column", func(t *testing.T) {
		total, err := metrics.Sum(rows)
		require.NoError(t, err)
		assert.Equal(t, 6, total)
	})

	t.Run("sum over durations", func(t *testing.T) {
		total, err := metrics.Sum(rows, metrics.FieldDuration)
		require.NoError(t, err)
		assert.Equal(t, 120, total)
	})

	t.Run("sum rejects unknown fields", func(t *testing.T) {
		_, err := metrics.Sum(rows, "clicks")
		require.Error(t, err)
	})

	t.Run("average over counts", func(t *testing.T) {
		avg, err := metrics.Average(rows)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, avg, 0.0001)
	})

	t.Run("average over durations", func(t *testing.T) {
		avg, err := metrics.Average(rows, metrics.FieldDuration)
		require.NoError(t, err)
		assert.InDelta(t, 40.0, avg, 0.0001)
	})

	t.Run("average of an empty set is an explicit error", func(t *testing.T) {
		_, err := metrics.Average(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, metrics.ErrEmptySet)
	})
}
