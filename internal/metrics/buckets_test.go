package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/metrics"
	"trackway/internal/testsupport"
	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

func TestBy(t *testing.T) {
	june := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	july := time.Date(2024, 7, 3, 9, 0, 0, 0, time.UTC)

	records := []tracks.Track{
		testsupport.NewTrack(1, "v1", "s1", "https://example.com/", june, testsupport.TrackOptions{Duration: ptr(30)}),
		testsupport.NewTrack(1, "v2", "s2", "https://example.com/", june.Add(2*time.Hour), testsupport.TrackOptions{}),
		testsupport.NewTrack(1, "v1", "s3", "https://example.com/blog", july, testsupport.TrackOptions{Duration: ptr(45)}),
	}

	t.Run("month bucket groups by first of month", func(t *testing.T) {
		rows, err := metrics.By(records, "month")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rows[0].Bucket)
		assert.Equal(t, 2, rows[0].Count)
		assert.Equal(t, 30, rows[0].Duration)

		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), rows[1].Bucket)
		assert.Equal(t, 1, rows[1].Count)
	})

	t.Run("year bucket normalizes to january first", func(t *testing.T) {
		rows, err := metrics.By(records, "year")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Bucket)
		assert.Equal(t, 3, rows[0].Count)
	})

	t.Run("literal field groups by value", func(t *testing.T) {
		rows, err := metrics.By(records, "url")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "https://example.com/", rows[0].Keys["url"])
		assert.Equal(t, 2, rows[0].Count)
		assert.Equal(t, "https://example.com/blog", rows[1].Keys["url"])
	})

	t.Run("temporal and literal fields combine", func(t *testing.T) {
		rows, err := metrics.By(records, "month", "visitor_id")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rows[0].Bucket)
		assert.Equal(t, "v1", rows[0].Keys["visitor_id"])
	})

	t.Run("two temporal fields are rejected", func(t *testing.T) {
		_, err := metrics.By(records, "day", "month")
		require.Error(t, err)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := metrics.By(records, "browser")
		require.Error(t, err)
	})

	t.Run("no fields is rejected", func(t *testing.T) {
		_, err := metrics.By(records)
		require.Error(t, err)
	})
}

func TestBuildTimeSeries(t *testing.T) {
	rng, err := timeframe.NewRange(
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 4, 23, 59, 59, 0, time.UTC),
	)
	require.NoError(t, err)

	records := []tracks.Track{
		testsupport.NewTrack(1, "v1", "s1", "/", time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC), testsupport.TrackOptions{}),
		testsupport.NewTrack(1, "v2", "s2", "/", time.Date(2024, 7, 3, 8, 0, 0, 0, time.UTC), testsupport.TrackOptions{}),
		testsupport.NewTrack(1, "v3", "s3", "/", time.Date(2024, 7, 3, 21, 0, 0, 0, time.UTC), testsupport.TrackOptions{}),
	}

	rows, err := metrics.By(records, "day")
	require.NoError(t, err)

	series := metrics.BuildTimeSeries(rows, rng, timeframe.BucketDay)
	require.Len(t, series, 4)

	assert.Equal(t, 1, series[0].Count)
	assert.Equal(t, 0, series[1].Count)
	assert.Equal(t, 2, series[2].Count)
	assert.Equal(t, 0, series[3].Count)
	assert.Equal(t, "2024-07-02T00:00:00Z", series[1].Date)
}
