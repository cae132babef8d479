package tracks_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/sites"
	"trackway/internal/testsupport"
	"trackway/internal/timeframe"
	"trackway/internal/tracks"
)

func TestCreateTrack(t *testing.T) {
	dbManager, logger, site := testsupport.SetupTestDBManagerWithSite(t, "example.com")

	t.Run("normalizes compound tokens into the row", func(t *testing.T) {
		previous := time.Unix(1719700000, 0).UTC()
		track, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
			SiteID:       site.ID,
			VisitorToken: testsupport.VisitorToken("visitor-1", 2, time.Unix(1719800000, 0).UTC(), &previous),
			SessionToken: testsupport.SessionToken("session-1", 3),
			TrackedAt:    time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
			URL:          "https://example.com/pricing",
		})
		require.NoError(t, err)

		assert.Equal(t, site.ID, track.SiteID)
		assert.Equal(t, "visitor-1", track.VisitorID)
		assert.Equal(t, 2, track.VisitNumber)
		require.NotNil(t, track.PreviousSessionAt)
		assert.Equal(t, previous, track.PreviousSessionAt.UTC())
		assert.Equal(t, "session-1", track.SessionID)
		assert.Equal(t, 3, track.ViewNumber)
		assert.False(t, track.IsFirstVisit())
	})

	t.Run("rejects a duplicate session view", func(t *testing.T) {
		trackedAt := time.Date(2024, 7, 1, 11, 0, 0, 0, time.UTC)
		input := &tracks.CreateTrackInput{
			SiteID:       site.ID,
			VisitorToken: testsupport.VisitorToken("visitor-2", 1, trackedAt, nil),
			SessionToken: testsupport.SessionToken("session-2", 1),
			TrackedAt:    trackedAt,
			URL:          "https://example.com/",
		}

		_, err := tracks.CreateTrack(dbManager, logger, input)
		require.NoError(t, err)

		_, err = tracks.CreateTrack(dbManager, logger, input)
		require.Error(t, err)
		var dup *tracks.DuplicateTrackError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("anonymous hits may repeat", func(t *testing.T) {
		input := &tracks.CreateTrackInput{
			SiteID:    site.ID,
			TrackedAt: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
			URL:       "https://example.com/",
		}

		_, err := tracks.CreateTrack(dbManager, logger, input)
		require.NoError(t, err)
		_, err = tracks.CreateTrack(dbManager, logger, input)
		require.NoError(t, err)
	})

	t.Run("resolves the site from its tracking code", func(t *testing.T) {
		track, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
			TrackingCode: site.TrackingCode,
			VisitorToken: "visitor-3",
			SessionToken: "session-3.1",
			TrackedAt:    time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC),
			URL:          "https://example.com/blog",
		})
		require.NoError(t, err)
		assert.Equal(t, site.ID, track.SiteID)
	})

	t.Run("unknown tracking code fails", func(t *testing.T) {
		_, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
			TrackingCode: "nope",
			TrackedAt:    time.Now().UTC(),
			URL:          "https://example.com/",
		})
		require.Error(t, err)
		var notFound *sites.SiteNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("malformed visitor token fails", func(t *testing.T) {
		_, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
			SiteID:       site.ID,
			VisitorToken: "a.1.2.3.4",
			TrackedAt:    time.Now().UTC(),
			URL:          "https://example.com/",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, tracks.ErrMalformedIdentifier)
	})

	t.Run("visit summary carries the duration", func(t *testing.T) {
		duration := 95
		track, err := tracks.CreateTrack(dbManager, logger, &tracks.CreateTrackInput{
			SiteID:       site.ID,
			VisitorToken: "visitor-4",
			SessionToken: "session-4.2",
			TrackedAt:    time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC),
			URL:          "https://example.com/checkout",
			Duration:     &duration,
		})
		require.NoError(t, err)
		assert.True(t, track.IsVisitSummary())
	})
}

func TestTracksInRange(t *testing.T) {
	dbManager, logger, site := testsupport.SetupTestDBManagerWithSite(t, "range.example.com")
	db := dbManager.GetConnection()

	times := []time.Time{
		time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC),
	}
	for i, at := range times {
		testsupport.CreateTestTrack(t, dbManager, logger, site.ID, "visitor-1", fmt.Sprintf("session-%d", i), 1, at)
	}

	rng, err := timeframe.NewRange(
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	result, err := tracks.TracksInRange(db, site.ID, rng)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.True(t, result[0].TrackedAt.Before(result[1].TrackedAt))
}
