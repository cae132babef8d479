package seeder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/seeder"
	"trackway/internal/sites"
	"trackway/internal/testsupport"
	"trackway/internal/tracks"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	t.Run("parses and applies defaults", func(t *testing.T) {
		path := writeProfile(t, `
sites:
  - domain: demo.example.com
    tracking_code: demo-code
`)
		profile, err := seeder.LoadProfile(path)
		require.NoError(t, err)
		require.Len(t, profile.Sites, 1)

		site := profile.Sites[0]
		assert.Equal(t, "demo.example.com", site.Domain)
		assert.Positive(t, site.Visitors)
		assert.Positive(t, site.MaxVisits)
		assert.Positive(t, site.DaysBack)
		assert.NotEmpty(t, site.Pages)
	})

	t.Run("rejects a profile without sites", func(t *testing.T) {
		path := writeProfile(t, "sites: []\n")
		_, err := seeder.LoadProfile(path)
		require.Error(t, err)
	})

	t.Run("rejects a site without a tracking code", func(t *testing.T) {
		path := writeProfile(t, `
sites:
  - domain: demo.example.com
`)
		_, err := seeder.LoadProfile(path)
		require.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := seeder.LoadProfile("/does/not/exist.yml")
		require.Error(t, err)
	})
}

func TestSeed(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	profile := &seeder.Profile{
		Sites: []seeder.SiteProfile{
			{
				Domain:       "seeded.example.com",
				TrackingCode: "seed-code",
				Visitors:     3,
				MaxVisits:    2,
				Pages:        []string{"/", "/pricing"},
				DaysBack:     7,
			},
		},
	}

	se := seeder.NewSeeder(dbManager, logger)
	require.NoError(t, se.Seed(context.Background(), profile))

	site, err := sites.GetSiteByDomain(db, "seeded.example.com")
	require.NoError(t, err)
	assert.Equal(t, "seed-code", site.TrackingCode)

	var trackCount int64
	require.NoError(t, db.Model(&tracks.Track{}).Where("site_id = ?", site.ID).Count(&trackCount).Error)
	assert.Positive(t, trackCount)

	// every session has exactly one visit-summary row
	var sessionCount int64
	require.NoError(t, db.Model(&tracks.Track{}).Where("site_id = ?", site.ID).
		Distinct("session_id").Count(&sessionCount).Error)
	var summaryCount int64
	require.NoError(t, db.Model(&tracks.Track{}).Where("site_id = ? AND duration IS NOT NULL", site.ID).
		Count(&summaryCount).Error)
	assert.Equal(t, sessionCount, summaryCount)

	t.Run("seeding twice does not duplicate the site", func(t *testing.T) {
		require.NoError(t, se.Seed(context.Background(), profile))

		var siteCount int64
		require.NoError(t, db.Model(&sites.Site{}).Where("domain = ?", "seeded.example.com").Count(&siteCount).Error)
		assert.EqualValues(t, 1, siteCount)
	})
}
