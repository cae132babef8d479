package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/config"
	"trackway/internal/jobs"
	"trackway/internal/testsupport"
	"trackway/internal/tracks"
)

func TestCleanupJob(t *testing.T) {
	dbManager, logger, site := testsupport.SetupTestDBManagerWithSite(t, "cleanup.example.com")
	db := dbManager.GetConnection()

	cfg := config.GetConfig()
	cfg.TracksRetentionDays = 90

	now := time.Now().UTC()
	testsupport.CreateTestTrack(t, dbManager, logger, site.ID, "old-visitor", "old-session", 1, now.AddDate(0, 0, -120))
	testsupport.CreateTestTrack(t, dbManager, logger, site.ID, "fresh-visitor", "fresh-session", 1, now.AddDate(0, 0, -5))

	job := jobs.NewCleanupJob(dbManager, logger, cfg)
	require.NoError(t, job.Run())

	var remaining []tracks.Track
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh-visitor", remaining[0].VisitorID)

	t.Run("second run is a no-op", func(t *testing.T) {
		require.NoError(t, job.Run())

		var count int64
		require.NoError(t, db.Model(&tracks.Track{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}
