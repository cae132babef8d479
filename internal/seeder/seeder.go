// Package seeder generates demo traffic from a YAML profile so dashboards
// have something to show on a fresh install.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"trackway/internal/sites"
	"trackway/internal/tracks"
)

// CampaignProfile describes one campaign attribution mix for seeded traffic.
type CampaignProfile struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Medium string `yaml:"medium"`
}

// SiteProfile describes the traffic shape to generate for one site.
type SiteProfile struct {
	Domain       string            `yaml:"domain"`
	TrackingCode string            `yaml:"tracking_code"`
	Visitors     int               `yaml:"visitors"`
	MaxVisits    int               `yaml:"max_visits"`
	Pages        []string          `yaml:"pages"`
	Campaigns    []CampaignProfile `yaml:"campaigns"`
	DaysBack     int               `yaml:"days_back"`
}

// Profile is the root of a YAML seed file.
type Profile struct {
	Sites []SiteProfile `yaml:"sites"`
}

// Seeder handles the demo data seeding process.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
	}
}

// LoadProfile reads and validates a YAML seed profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse seed profile: %w", err)
	}
	if len(profile.Sites) == 0 {
		return nil, fmt.Errorf("seed profile defines no sites")
	}
	for i := range profile.Sites {
		s := &profile.Sites[i]
		if s.Domain == "" || s.TrackingCode == "" {
			return nil, fmt.Errorf("seed profile site %d needs domain and tracking_code", i)
		}
		if s.Visitors <= 0 {
			s.Visitors = 25
		}
		if s.MaxVisits <= 0 {
			s.MaxVisits = 4
		}
		if len(s.Pages) == 0 {
			s.Pages = []string{"/", "/pricing", "/blog", "/about"}
		}
		if s.DaysBack <= 0 {
			s.DaysBack = 30
		}
	}
	return &profile, nil
}

// Seed creates the profile's sites and generates visit histories for each.
func (s *Seeder) Seed(ctx context.Context, profile *Profile) error {
	start := time.Now()
	db := s.DBManager.GetConnection()

	total := 0
	for _, sp := range profile.Sites {
		site, err := s.ensureSite(db, sp)
		if err != nil {
			return err
		}

		created, err := s.seedSite(ctx, site, sp)
		if err != nil {
			return err
		}
		total += created
	}

	s.Logger.Info("Seeding completed",
		slog.Int("tracks", total),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) ensureSite(db *gorm.DB, sp SiteProfile) (*sites.Site, error) {
	existing, err := sites.GetSiteByDomain(db, sp.Domain)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up site %s: %w", sp.Domain, err)
	}

	site := &sites.Site{Domain: sp.Domain, TrackingCode: sp.TrackingCode}
	if err := sites.CreateSite(db, site); err != nil {
		return nil, fmt.Errorf("failed to create site %s: %w", sp.Domain, err)
	}
	s.Logger.Info("Created site", slog.String("domain", sp.Domain))
	return site, nil
}

// seedSite writes a visit history per visitor: each visit gets a few page
// views plus the closing summary row carrying the visit duration.
func (s *Seeder) seedSite(ctx context.Context, site *sites.Site, sp SiteProfile) (int, error) {
	created := 0

	for v := 0; v < sp.Visitors; v++ {
		select {
		case <-ctx.Done():
			return created, ctx.Err()
		default:
		}

		visitorID := fmt.Sprintf("demo-%s-%04d", site.TrackingCode, v)
		visitCount := 1 + rand.IntN(sp.MaxVisits)
		var previousSessionAt *time.Time

		for visit := 1; visit <= visitCount; visit++ {
			sessionStart := time.Now().UTC().
				AddDate(0, 0, -rand.IntN(sp.DaysBack)).
				Add(-time.Duration(rand.IntN(86400)) * time.Second)
			sessionID := fmt.Sprintf("%s-s%d", visitorID, visit)
			views := 1 + rand.IntN(4)

			var campaign CampaignProfile
			if len(sp.Campaigns) > 0 && rand.IntN(3) == 0 {
				campaign = sp.Campaigns[rand.IntN(len(sp.Campaigns))]
			}

			for view := 1; view <= views; view++ {
				input := &tracks.CreateTrackInput{
					SiteID:         site.ID,
					VisitorToken:   visitorToken(visitorID, visit, sessionStart, previousSessionAt),
					SessionToken:   fmt.Sprintf("%s.%d", sessionID, view),
					TrackedAt:      sessionStart.Add(time.Duration(view-1) * 45 * time.Second),
					URL:            "https://" + site.Domain + sp.Pages[rand.IntN(len(sp.Pages))],
					CampaignName:   campaign.Name,
					CampaignSource: campaign.Source,
					CampaignMedium: campaign.Medium,
				}
				if view == views {
					duration := views * (30 + rand.IntN(90))
					input.Duration = &duration
				}

				if _, err := tracks.CreateTrack(s.DBManager, s.Logger, input); err != nil {
					var dup *tracks.DuplicateTrackError
					if errors.As(err, &dup) {
						continue
					}
					return created, fmt.Errorf("failed to seed track: %w", err)
				}
				created++
			}

			prev := sessionStart
			previousSessionAt = &prev
		}
	}

	s.Logger.Info("Seeded site traffic",
		slog.String("domain", sp.Domain),
		slog.Int("visitors", sp.Visitors),
		slog.Int("tracks", created))
	return created, nil
}

func visitorToken(visitorID string, visitNumber int, sessionStart time.Time, previous *time.Time) string {
	token := visitorID + "." + strconv.Itoa(visitNumber) + "." + strconv.FormatInt(sessionStart.Unix(), 10)
	if previous != nil {
		token += "." + strconv.FormatInt(previous.Unix(), 10)
	}
	return token
}
