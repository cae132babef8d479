package tracks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"trackway/internal/sites"
)

// Track represents one page-view observation. A non-nil Duration marks the
// row summarizing a completed visit; at most one such row exists per session
// (trusted from ingestion, not re-checked here).
type Track struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	SiteID            uint   `gorm:"index:idx_site_tracked_at;not null"`
	VisitorID         string `gorm:"index;size:64"`
	VisitNumber       int
	PreviousSessionAt *time.Time
	SessionID         string `gorm:"index;size:64"`
	ViewNumber        int
	TrackedAt         time.Time `gorm:"index:idx_site_tracked_at;not null"`
	Duration          *int
	URL               string
	Outbound          bool
	CampaignName      string `gorm:"index"`
	CampaignSource    string
	CampaignMedium    string
	CreatedAt         time.Time
}

// DuplicateTrackError represents a uniqueness violation on
// (site_id, visitor_id, session_id, view_number).
type DuplicateTrackError struct {
	SiteID     uint
	VisitorID  string
	SessionID  string
	ViewNumber int
}

func (e *DuplicateTrackError) Error() string {
	return fmt.Sprintf("duplicate track for site %d visitor %s session %s view %d",
		e.SiteID, e.VisitorID, e.SessionID, e.ViewNumber)
}

// CreateTrackInput defines the input required to create a track.
type CreateTrackInput struct {
	SiteID         uint   // owning site; resolved from TrackingCode when zero
	TrackingCode   string
	VisitorToken   string // compound visitor cookie string
	SessionToken   string // compound session cookie string
	TrackedAt      time.Time
	Duration       *int
	URL            string
	Outbound       bool
	CampaignName   string
	CampaignSource string
	CampaignMedium string
}

// CreateTrack normalizes the compound visitor/session tokens, resolves the
// owning site, enforces the per-session view uniqueness, and inserts the
// track. Tracks are immutable after creation.
func CreateTrack(dbManager cartridge.DBManager, logger *slog.Logger, input *CreateTrackInput) (*Track, error) {
	if input.TrackedAt.IsZero() {
		input.TrackedAt = time.Now().UTC()
	}

	visitor, err := ParseVisitorToken(input.VisitorToken)
	if err != nil {
		logger.Warn("Rejected malformed visitor token", slog.Any("error", err))
		return nil, err
	}
	session, err := ParseSessionToken(input.SessionToken)
	if err != nil {
		logger.Warn("Rejected malformed session token", slog.Any("error", err))
		return nil, err
	}

	db := dbManager.GetConnection()

	siteID := input.SiteID
	if siteID == 0 {
		siteID, err = sites.ResolveTrackingCode(db, input.TrackingCode)
		if err != nil {
			logger.Debug("Failed to resolve tracking code",
				slog.String("code", input.TrackingCode), slog.Any("error", err))
			return nil, err
		}
	}

	track := &Track{
		SiteID:         siteID,
		TrackedAt:      input.TrackedAt.UTC(),
		Duration:       input.Duration,
		URL:            input.URL,
		Outbound:       input.Outbound,
		CampaignName:   input.CampaignName,
		CampaignSource: input.CampaignSource,
		CampaignMedium: input.CampaignMedium,
		CreatedAt:      time.Now().UTC(),
	}
	if visitor != nil {
		track.VisitorID = visitor.VisitorID
		track.VisitNumber = visitor.VisitNumber
		track.PreviousSessionAt = visitor.PreviousSessionAt
	}
	if session != nil {
		track.SessionID = session.SessionID
		track.ViewNumber = session.ViewNumber
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		// Uniqueness only applies when both identifiers are present; rows
		// without them are anonymous hits and may repeat freely.
		if track.VisitorID != "" && track.SessionID != "" {
			var count int64
			err := tx.Model(&Track{}).
				Where("site_id = ? AND visitor_id = ? AND session_id = ? AND view_number = ?",
					track.SiteID, track.VisitorID, track.SessionID, track.ViewNumber).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check track uniqueness: %w", err)
			}
			if count > 0 {
				return &DuplicateTrackError{
					SiteID:     track.SiteID,
					VisitorID:  track.VisitorID,
					SessionID:  track.SessionID,
					ViewNumber: track.ViewNumber,
				}
			}
		}
		return tx.Create(track).Error
	})
	if err != nil {
		return nil, err
	}

	return track, nil
}

// IsFirstVisit reports whether this track belongs to the visitor's first
// observed visit.
func (t *Track) IsFirstVisit() bool {
	return t.VisitNumber == 1
}

// IsVisitSummary reports whether this row is the one summarizing a completed
// visit for its session.
func (t *Track) IsVisitSummary() bool {
	return t.Duration != nil
}
