package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/timeframe"
)

func TestParseBucket(t *testing.T) {
	for _, name := range []string{"hour", "day", "month", "year"} {
		bucket, err := timeframe.ParseBucket(name)
		require.NoError(t, err)
		assert.Equal(t, timeframe.Bucket(name), bucket)
	}

	_, err := timeframe.ParseBucket("week")
	require.Error(t, err)
}

func TestNewRange(t *testing.T) {
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	rng, err := timeframe.NewRange(from, to)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, rng.Duration())

	_, err = timeframe.NewRange(to, from)
	require.Error(t, err)
}

func TestRangeContains(t *testing.T) {
	rng, err := timeframe.NewRange(
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 31, 23, 59, 59, 0, time.UTC),
	)
	require.NoError(t, err)

	assert.True(t, rng.Contains(rng.From), "start boundary is inclusive")
	assert.True(t, rng.Contains(rng.To), "end boundary is inclusive")
	assert.True(t, rng.Contains(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, rng.Contains(rng.From.Add(-time.Second)))
	assert.False(t, rng.Contains(rng.To.Add(time.Second)))
}

func TestTruncateToBucket(t *testing.T) {
	at := time.Date(2024, 7, 15, 14, 35, 42, 0, time.UTC)

	cases := []struct {
		bucket timeframe.Bucket
		want   time.Time
	}{
		{timeframe.BucketHour, time.Date(2024, 7, 15, 14, 0, 0, 0, time.UTC)},
		{timeframe.BucketDay, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
		{timeframe.BucketMonth, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{timeframe.BucketYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(string(tc.bucket), func(t *testing.T) {
			assert.Equal(t, tc.want, timeframe.TruncateToBucket(at, tc.bucket))
		})
	}

	t.Run("non-UTC input truncates in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+5", 5*3600)
		local := time.Date(2024, 7, 15, 2, 30, 0, 0, loc) // 2024-07-14 21:30 UTC
		assert.Equal(t, time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC),
			timeframe.TruncateToBucket(local, timeframe.BucketDay))
	})
}

func TestBucketStarts(t *testing.T) {
	rng, err := timeframe.NewRange(
		time.Date(2024, 6, 29, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	starts := rng.BucketStarts(timeframe.BucketDay)
	require.Len(t, starts, 4)
	assert.Equal(t, time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC), starts[0])
	assert.Equal(t, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), starts[3])

	t.Run("month starts cross the month boundary", func(t *testing.T) {
		starts := rng.BucketStarts(timeframe.BucketMonth)
		require.Len(t, starts, 2)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), starts[0])
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), starts[1])
	})
}

func TestAppropriateBucket(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		days int
		want timeframe.Bucket
	}{
		{"one day defaults to hours", 1, timeframe.BucketHour},
		{"a week uses days", 7, timeframe.BucketDay},
		{"a quarter uses months", 120, timeframe.BucketMonth},
		{"many years use years", 6 * 365, timeframe.BucketYear},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng, err := timeframe.NewRange(now, now.AddDate(0, 0, tc.days))
			require.NoError(t, err)
			assert.Equal(t, tc.want, rng.AppropriateBucket())
		})
	}
}

func TestParseRange(t *testing.T) {
	t.Run("explicit dates", func(t *testing.T) {
		rng, err := timeframe.ParseRange(timeframe.ParserParams{
			FromDate: "2024-07-01",
			ToDate:   "2024-07-15",
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), rng.From)
		assert.Equal(t, time.Date(2024, 7, 15, 23, 59, 59, 0, time.UTC), rng.To)
	})

	t.Run("single day covers the whole day", func(t *testing.T) {
		rng, err := timeframe.ParseRange(timeframe.ParserParams{
			FromDate: "2024-07-01",
			ToDate:   "2024-07-01",
		})
		require.NoError(t, err)
		assert.True(t, rng.Contains(time.Date(2024, 7, 1, 23, 30, 0, 0, time.UTC)))
	})

	t.Run("defaults to the last 30 days", func(t *testing.T) {
		rng, err := timeframe.ParseRange(timeframe.ParserParams{})
		require.NoError(t, err)
		assert.InDelta(t, 30, rng.Duration().Hours()/24, 1.1)
	})

	t.Run("garbage dates fail", func(t *testing.T) {
		_, err := timeframe.ParseRange(timeframe.ParserParams{FromDate: "July 1st"})
		require.Error(t, err)

		_, err = timeframe.ParseRange(timeframe.ParserParams{ToDate: "2024-13-45"})
		require.Error(t, err)
	})

	t.Run("inverted dates fail", func(t *testing.T) {
		_, err := timeframe.ParseRange(timeframe.ParserParams{
			FromDate: "2024-07-15",
			ToDate:   "2024-07-01",
		})
		require.Error(t, err)
	})
}
