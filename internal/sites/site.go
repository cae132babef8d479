package sites

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SiteNotFoundError represents an error when a tracking code or domain does
// not resolve to a registered site.
type SiteNotFoundError struct {
	LookupKey string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found for lookup key: %s", e.LookupKey)
}

// NewSiteNotFoundError creates a new SiteNotFoundError
func NewSiteNotFoundError(lookupKey string) *SiteNotFoundError {
	return &SiteNotFoundError{LookupKey: lookupKey}
}

// Site represents a tracked website
type Site struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Domain       string    `gorm:"unique;not null" json:"domain"`        // Base domain, e.g., "example.com"
	TrackingCode string    `gorm:"uniqueIndex;not null" json:"tracking_code"` // Public lookup key embedded in the tracker snippet
	CreatedAt    time.Time `json:"created_at"`
}

// ResolveTrackingCode resolves a public tracking code to the owning site's ID.
// Called once per track at creation time when no site ID is supplied.
func ResolveTrackingCode(db *gorm.DB, code string) (uint, error) {
	var site Site
	if err := db.Where("tracking_code = ?", code).First(&site).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, NewSiteNotFoundError(code)
		}
		return 0, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return site.ID, nil
}

// GetSiteByID retrieves a site by its ID
func GetSiteByID(db *gorm.DB, id uint) (Site, error) {
	var site Site
	if err := db.First(&site, id).Error; err != nil {
		return Site{}, err
	}
	return site, nil
}

// GetSiteByDomain retrieves a site by its domain
func GetSiteByDomain(db *gorm.DB, domain string) (*Site, error) {
	var site Site
	if err := db.Where("domain = ?", domain).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// GetAllSites retrieves all sites
func GetAllSites(db *gorm.DB) ([]Site, error) {
	var all []Site
	if err := db.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to get sites: %w", err)
	}
	return all, nil
}

// CreateSite creates a new site
func CreateSite(db *gorm.DB, site *Site) error {
	site.CreatedAt = time.Now().UTC()

	if site.TrackingCode == "" {
		return fmt.Errorf("tracking code is required")
	}

	return db.Create(site).Error
}

// DeleteSite deletes a site by its ID
func DeleteSite(db *gorm.DB, id uint) error {
	result := db.Delete(&Site{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
