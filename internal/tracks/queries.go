package tracks

import (
	"fmt"

	"gorm.io/gorm"

	"trackway/internal/timeframe"
)

// TrackFilters represents filtering options when listing tracks
type TrackFilters struct {
	SiteID       uint
	Range        *timeframe.Range
	URLFilter    string
	CampaignName string
	Limit        int
	Offset       int
}

// TracksInRange loads all tracks for a site within an inclusive time range,
// ordered by time. This is the record set the metric scopes evaluate over.
func TracksInRange(db *gorm.DB, siteID uint, r *timeframe.Range) ([]Track, error) {
	var result []Track
	query := db.Where("site_id = ?", siteID)
	if r != nil {
		query = query.Where("tracked_at BETWEEN ? AND ?", r.From.UTC(), r.To.UTC())
	}
	if err := query.Order("tracked_at ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("error fetching tracks in range: %w", err)
	}
	return result, nil
}

// GetFilteredTracks retrieves filtered and paginated tracks for inspection UIs.
func GetFilteredTracks(db *gorm.DB, filters TrackFilters) ([]Track, int64, error) {
	query := db.Model(&Track{}).Where("site_id = ?", filters.SiteID)

	if filters.Range != nil {
		query = query.Where("tracked_at BETWEEN ? AND ?", filters.Range.From.UTC(), filters.Range.To.UTC())
	}
	if filters.URLFilter != "" {
		query = query.Where("url LIKE ?", "%"+filters.URLFilter+"%")
	}
	if filters.CampaignName != "" {
		query = query.Where("campaign_name = ?", filters.CampaignName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var result []Track
	err := query.Order("tracked_at DESC").Limit(limit).Offset(filters.Offset).Find(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	return result, total, nil
}

// DeleteTracksForSite removes every track belonging to a site. Used when the
// site itself is deleted.
func DeleteTracksForSite(db *gorm.DB, siteID uint) error {
	if err := db.Where("site_id = ?", siteID).Delete(&Track{}).Error; err != nil {
		return fmt.Errorf("failed to delete tracks for site %d: %w", siteID, err)
	}
	return nil
}

// CountTracksForSite returns the total number of tracks recorded for a site.
func CountTracksForSite(db *gorm.DB, siteID uint) (int64, error) {
	var count int64
	if err := db.Model(&Track{}).Where("site_id = ?", siteID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}
